package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"imgvault/internal/models"
)

// sniffLen matches the mimetype library's default read limit.
const sniffLen = 3072

// FileMeta is what the transport layer knows about one uploaded file.
type FileMeta struct {
	Filename string
	// DeclaredSize is the client-declared byte count, or -1 when unknown.
	DeclaredSize int64
	// TransportErr is set when the upload did not arrive intact.
	TransportErr error
}

// Accepted is the outcome of a successful validation.
type Accepted struct {
	Extension models.Extension
	MimeType  string
	// Content replays the sniffed bytes followed by the rest of the stream.
	// Reading past the size ceiling fails with a TooLarge ValidationError.
	Content io.Reader
}

// Validator enforces the transport, content type and size checks.
type Validator struct {
	maxBytes int64
	allowed  map[models.Extension]struct{}
}

// NewValidator builds a validator. A non-positive maxBytes selects the
// default ceiling; an empty allow-list permits every supported extension.
func NewValidator(maxBytes int64, allowed []models.Extension) *Validator {
	if maxBytes <= 0 {
		maxBytes = models.DefaultMaxUploadBytes
	}
	set := make(map[models.Extension]struct{})
	for _, ext := range allowed {
		set[ext] = struct{}{}
	}
	if len(set) == 0 {
		for _, ext := range models.AllExtensions() {
			set[ext] = struct{}{}
		}
	}
	return &Validator{maxBytes: maxBytes, allowed: set}
}

// MaxBytes returns the configured size ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate runs the checks in order and stops at the first failure. The
// type is decided by the content's magic bytes; meta.Filename is ignored.
func (v *Validator) Validate(meta FileMeta, r io.Reader) (Accepted, error) {
	var zero Accepted
	if meta.TransportErr != nil {
		if errors.Is(meta.TransportErr, ErrContentTooLarge) {
			return zero, reject(ReasonTooLarge, meta.TransportErr)
		}
		return zero, reject(ReasonTransportError, meta.TransportErr)
	}
	if r == nil {
		return zero, reject(ReasonTransportError, fmt.Errorf("no content"))
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return zero, reject(ReasonTransportError, err)
	}
	header = header[:n]

	detected := mimetype.Detect(header)
	mediaType := strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
	ext, ok := models.ExtensionForMediaType(mediaType)
	if !ok {
		return zero, reject(ReasonUnsupportedType, fmt.Errorf("detected %s", mediaType))
	}
	if _, ok := v.allowed[ext]; !ok {
		return zero, reject(ReasonUnsupportedType, fmt.Errorf("%s uploads are disabled", ext))
	}

	if meta.DeclaredSize > v.maxBytes {
		return zero, reject(ReasonTooLarge, fmt.Errorf("declared %d bytes exceeds %d", meta.DeclaredSize, v.maxBytes))
	}
	if int64(n) > v.maxBytes {
		return zero, reject(ReasonTooLarge, fmt.Errorf("content exceeds %d bytes", v.maxBytes))
	}

	return Accepted{
		Extension: ext,
		MimeType:  ext.MediaType(),
		Content:   newCappedReader(io.MultiReader(bytes.NewReader(header), r), v.maxBytes),
	}, nil
}

// cappedReader fails once more than limit bytes have been read and tags
// underlying read failures as transport errors.
type cappedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
	err       error
}

func newCappedReader(r io.Reader, limit int64) *cappedReader {
	return &cappedReader{r: r, remaining: limit, limit: limit}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	if int64(n) > c.remaining {
		c.err = reject(ReasonTooLarge, fmt.Errorf("content exceeds %d bytes", c.limit))
		return int(c.remaining), c.err
	}
	c.remaining -= int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		c.err = reject(ReasonTransportError, err)
		return n, c.err
	}
	return n, err
}
