package backend

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

// FileUpload is a file sent as a multipart part. Size is optional; when it
// is zero the length is taken from the reader (Stat or Len) or, failing
// that, by reading the content into memory.
type FileUpload struct {
	Filename string
	Content  io.Reader
	Size     int64
}

// Multipart is a multipart/form-data body. The boundary and content type are
// computed when the request is sent.
type Multipart struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field  string
	upload FileUpload
}

// NewMultipart returns an empty form.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field appends a text field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, formField{name: name, value: value})
	return m
}

// File appends a file part under field.
func (m *Multipart) File(field string, upload FileUpload) *Multipart {
	m.files = append(m.files, formFile{field: field, upload: upload})
	return m
}

func (m *Multipart) validate() error {
	for _, f := range m.files {
		if f.upload.Content == nil {
			return fmt.Errorf("%w: multipart field %q has no content", ErrInvalidRequest, f.field)
		}
	}
	return nil
}

// encode renders the form around the file readers and returns the body with
// its exact length. The backend reads only Content-Length bytes, so the body
// is never sent chunked.
func (m *Multipart) encode() (io.Reader, int64, string, error) {
	if err := m.validate(); err != nil {
		return nil, 0, "", err
	}
	var (
		buf      bytes.Buffer
		segments []io.Reader
		length   int64
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunk := bytes.Clone(buf.Bytes())
		segments = append(segments, bytes.NewReader(chunk))
		length += int64(len(chunk))
		buf.Reset()
	}

	writer := multipart.NewWriter(&buf)
	for _, f := range m.fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, 0, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	for _, f := range m.files {
		name := uploadName(f.upload.Filename)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     f.field,
			"filename": name,
		}))
		header.Set("Content-Type", partContentType(name))
		if _, err := writer.CreatePart(header); err != nil {
			return nil, 0, "", fmt.Errorf("create part %s: %w", f.field, err)
		}
		flush()

		content, size, err := sizedContent(f.upload)
		if err != nil {
			return nil, 0, "", fmt.Errorf("read %s: %w", name, err)
		}
		segments = append(segments, io.LimitReader(content, size))
		length += size
	}
	if err := writer.Close(); err != nil {
		return nil, 0, "", fmt.Errorf("close form: %w", err)
	}
	flush()
	return io.MultiReader(segments...), length, writer.FormDataContentType(), nil
}

func uploadName(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "upload"
	}
	return name
}

// sizedContent returns the upload content with the number of bytes it will
// yield.
func sizedContent(upload FileUpload) (io.Reader, int64, error) {
	if upload.Size > 0 {
		return upload.Content, upload.Size, nil
	}
	switch r := upload.Content.(type) {
	case interface{ Len() int }:
		return upload.Content, int64(r.Len()), nil
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := r.Stat()
		if err == nil && info.Mode().IsRegular() {
			offset := int64(0)
			if seeker, ok := upload.Content.(io.Seeker); ok {
				if pos, err := seeker.Seek(0, io.SeekCurrent); err == nil {
					offset = pos
				}
			}
			return upload.Content, max(info.Size()-offset, 0), nil
		}
	}
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func partContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
