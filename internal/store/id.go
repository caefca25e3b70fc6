package store

import "github.com/google/uuid"

const sessionIDPrefix = "ss-"

func newUserID() string {
	return uuid.NewString()
}

func newSessionID() string {
	return sessionIDPrefix + uuid.NewString()
}
