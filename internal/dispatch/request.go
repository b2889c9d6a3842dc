package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Request describes one outbound call before the dispatcher augments it.
// At most one of JSON, Form, or Multipart should be set.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	JSON      any
	Form      url.Values
	Multipart *Multipart
	Header    http.Header
}

// Multipart is a multipart/form-data payload of plain fields followed by files.
type Multipart struct {
	Fields []Field
	Files  []File
}

// Field is a plain multipart form value.
type Field struct {
	Name  string
	Value string
}

// File is a multipart file part streamed from Content.
type File struct {
	Field    string
	Filename string
	Content  io.Reader
}

func (r Request) resolveURL(base string) (string, error) {
	path := strings.TrimSpace(r.Path)
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = base + path
	}
	if len(r.Query) == 0 {
		return target, nil
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}
	query := parsed.Query()
	for key, values := range r.Query {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// body returns the encoded payload and its content type. Multipart payloads
// are streamed through a pipe so large uploads are never buffered whole.
func (r Request) body() (io.Reader, string, error) {
	switch {
	case r.Multipart != nil:
		reader, contentType := r.Multipart.stream()
		return reader, contentType, nil
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), contentTypeForm, nil
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request body: %w", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	default:
		return nil, "", nil
	}
}

func (m *Multipart) stream() (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(writer))
	}()
	return pr, writer.FormDataContentType()
}

func (m *Multipart) write(writer *multipart.Writer) error {
	for _, field := range m.Fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return fmt.Errorf("write field %s: %w", field.Name, err)
		}
	}
	for _, file := range m.Files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return fmt.Errorf("create file part %s: %w", file.Field, err)
		}
		if file.Content == nil {
			continue
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("copy file part %s: %w", file.Field, err)
		}
	}
	return writer.Close()
}
