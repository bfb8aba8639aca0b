package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const fileField = "file"

var (
	ErrMissingFile   = errors.New("no file part in the request")
	ErrEmptyFilename = errors.New("no selected file")
)

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readUpload returns the first multipart part named "file" that carries a
// filename parameter. Parts without one are plain form values, not files.
func readUpload(r *http.Request) (upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return upload{}, ErrMissingFile
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return upload{}, ErrMissingFile
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return upload{}, err
			}
			return upload{}, ErrMissingFile
		}

		if part.FormName() != fileField {
			_ = part.Close()
			continue
		}

		filename, ok := partFilename(part.Header.Get("Content-Disposition"))
		if !ok {
			_ = part.Close()
			continue
		}
		if filename == "" {
			_ = part.Close()
			return upload{}, ErrEmptyFilename
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return upload{}, fmt.Errorf("read upload: %w", err)
		}

		return upload{
			Filename:    filename,
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}
}

// partFilename reports the filename parameter and whether it was present at all.
func partFilename(contentDisposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return "", false
	}
	if name, ok := params["filename"]; ok {
		return name, true
	}
	return "", false
}
