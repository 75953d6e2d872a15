package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSize is the largest accepted decoded image, 1 MB.
const DefaultMaxSize = 1048576

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"

	// base64 forms of the leading magic bytes
	pngSignature   = "iVBORw0KGgo"
	jpegSignature1 = "/9j/"
	jpegSignature2 = "/9g/"
)

// SniffType returns the image MIME type from the base64 prefix, or "" when the
// payload is neither PNG nor JPEG.
func SniffType(b64 string) string {
	switch {
	case strings.HasPrefix(b64, pngSignature):
		return MIMEPNG
	case strings.HasPrefix(b64, jpegSignature1), strings.HasPrefix(b64, jpegSignature2):
		return MIMEJPEG
	}
	return ""
}

// WithinSize estimates the decoded size from the encoded length.
func WithinSize(b64 string, maxSize int) bool {
	return len(b64)*3/4 <= maxSize
}

// Image is a validated upload ready to forward.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Validate checks the name, signature and size of a base64 upload and decodes it.
func Validate(name, b64 string, maxSize int) (Image, error) {
	if name == "" {
		return Image{}, fmt.Errorf("%w: Name parameter is required", apperrors.ErrBadRequest)
	}
	if b64 == "" {
		return Image{}, fmt.Errorf("%w: File field is required and must be base64 encoded", apperrors.ErrBadRequest)
	}
	mimeType := SniffType(b64)
	if mimeType == "" {
		return Image{}, fmt.Errorf("%w: Invalid image type. Only PNG and JPEG are allowed", apperrors.ErrBadRequest)
	}
	if !WithinSize(b64, maxSize) {
		return Image{}, fmt.Errorf("%w: Image size exceeds 1 MB limit", apperrors.ErrBadRequest)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Image{}, fmt.Errorf("%w: File field is not valid base64", apperrors.ErrBadRequest)
	}
	return Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

// Proxy forwards validated uploads to the catalogue image endpoint.
type Proxy struct {
	client  *catalogue.Client
	maxSize int
}

func NewProxy(client *catalogue.Client, maxSize int) *Proxy {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Proxy{client: client, maxSize: maxSize}
}

func imagePath(t assets.Type, id assets.Identifier, name string) string {
	return fmt.Sprintf("/%s/%s/image?name=%s", t.Info().PathSegment, url.PathEscape(id.String()), url.QueryEscape(name))
}

// Upload sends a new image with POST, or replaces one with PUT.
func (p *Proxy) Upload(ctx context.Context, method string, t assets.Type, id assets.Identifier, name, b64 string) (json.RawMessage, error) {
	if method != http.MethodPost && method != http.MethodPut {
		return nil, fmt.Errorf("%w: unsupported method %s", apperrors.ErrBadRequest, method)
	}
	token, ok := sessions.AccessTokenFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	img, err := Validate(name, b64, p.maxSize)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeMultipart(img)
	if err != nil {
		return nil, fmt.Errorf("%w: encode upload: %w", apperrors.ErrInternal, err)
	}
	resp, err := p.client.Do(ctx, imagePath(t, id, name), token, catalogue.Options{
		Method:  method,
		Body:    body,
		Headers: map[string]string{"Content-Type": contentType},
	})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("image upload failed")
		return nil, err
	}
	p.client.Revalidate("/" + t.Info().PathSegment)
	return rawOrEmpty(resp), nil
}

func (p *Proxy) Delete(ctx context.Context, t assets.Type, id assets.Identifier, name string) (json.RawMessage, error) {
	token, ok := sessions.AccessTokenFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	if name == "" {
		return nil, fmt.Errorf("%w: Name parameter is required", apperrors.ErrBadRequest)
	}
	resp, err := p.client.Do(ctx, imagePath(t, id, name), token, catalogue.Options{Method: http.MethodDelete})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("image delete failed")
		return nil, err
	}
	p.client.Revalidate("/" + t.Info().PathSegment)
	return rawOrEmpty(resp), nil
}

func encodeMultipart(img Image) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, img.Name))
	h.Set("Content-Type", img.MIMEType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func rawOrEmpty(b []byte) json.RawMessage {
	if len(bytes.TrimSpace(b)) == 0 {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(b)
}
