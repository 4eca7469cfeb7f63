// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// FileURL returns the download URL for a file stored in the named
// field of a record, or "" when the field is empty. File fields hold
// the server-assigned filename; the URL is derived from the record's
// collection, id, and that filename.
func (c *Client) FileURL(record Record, field string) string {
	filename := record.GetString(field)
	if filename == "" || record.ID() == "" || record.Collection() == "" {
		return ""
	}
	return c.baseURL + "/api/files/" +
		url.PathEscape(record.Collection()) + "/" +
		url.PathEscape(record.ID()) + "/" +
		url.PathEscape(filename)
}

// DownloadFile fetches the contents of the file stored in the named
// field of a record.
func (c *Client) DownloadFile(ctx context.Context, record Record, field string) ([]byte, error) {
	fileURL := c.FileURL(record, field)
	if fileURL == "" {
		return nil, fmt.Errorf("gateway: record %s has no file in field %q", record.ID(), field)
	}
	// FileURL is absolute; strip the base for doRequestRaw.
	path := fileURL[len(c.baseURL):]
	body, err := c.doRequestRaw(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: download %s: %w", path, err)
	}
	return body, nil
}

// UploadFile replaces the file in the named field of a record via a
// multipart PATCH. The server stores the content under a derived
// filename and returns the updated record.
func (c *Client) UploadFile(ctx context.Context, collection, id, field, filename string, content []byte) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("gateway: UploadFile requires a record id")
	}

	contentType, buf, err := multipartFile(field, filename, content)
	if err != nil {
		return nil, err
	}
	path := recordPath(collection) + "/" + url.PathEscape(id)
	body, err := c.doRequestRaw(ctx, http.MethodPatch, path, contentType, buf)
	if err != nil {
		return nil, fmt.Errorf("gateway: upload to %s/%s: %w", collection, id, err)
	}
	return decodeRecord(body)
}

// CreateWithFile creates a record whose initial content is a single
// file field, via a multipart POST.
func (c *Client) CreateWithFile(ctx context.Context, collection, field, filename string, content []byte) (Record, error) {
	contentType, buf, err := multipartFile(field, filename, content)
	if err != nil {
		return nil, err
	}
	body, err := c.doRequestRaw(ctx, http.MethodPost, recordPath(collection), contentType, buf)
	if err != nil {
		return nil, fmt.Errorf("gateway: create in %s: %w", collection, err)
	}
	return decodeRecord(body)
}

func multipartFile(field, filename string, content []byte) (string, *bytes.Buffer, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return "", nil, fmt.Errorf("gateway: building multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", nil, fmt.Errorf("gateway: writing multipart content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", nil, fmt.Errorf("gateway: finalizing multipart body: %w", err)
	}
	return writer.FormDataContentType(), &buf, nil
}
