//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package compresshttp decodes compressed request bodies, so that clients can
// upload large archives gzip- or snappy-compressed.
package compresshttp

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang/snappy"
)

const (
	contentEncoding  = "Content-Encoding"
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingSnappy   = "x-snappy-framed"

	AcceptedEncodings = EncodingSnappy + ", " + EncodingGzip
)

var ErrUnacceptableEncoding = errors.New("unknown Content-Encoding")

func decompress(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case EncodingIdentity, "":
		return r, nil
	case EncodingGzip:
		return gzip.NewReader(r)
	case EncodingSnappy:
		return snappy.NewReader(r), nil
	default:
		return nil, ErrUnacceptableEncoding
	}
}

// DecompressRequest replaces the request body with a decoded stream according
// to its Content-Encoding. The original body is still closed by the server.
func DecompressRequest(request *http.Request) error {
	encoding := request.Header.Get(contentEncoding)
	if encoding == "" || encoding == EncodingIdentity {
		return nil
	}
	r, err := decompress(encoding, request.Body)
	if err != nil {
		return err
	}
	request.Body = readAndClose{r: r, c: request.Body}
	request.ContentLength = -1
	request.Header.Del(contentEncoding)
	return nil
}

// Compress encodes a request body for upload with the given Content-Encoding
func Compress(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case EncodingIdentity, "":
		return body, nil
	case EncodingGzip:
		w = gzip.NewWriter(&buf)
	case EncodingSnappy:
		w = snappy.NewBufferedWriter(&buf)
	default:
		return nil, ErrUnacceptableEncoding
	}
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type readAndClose struct {
	r io.Reader
	c io.Closer
}

func (rc readAndClose) Read(d []byte) (int, error) {
	return rc.r.Read(d)
}

func (rc readAndClose) Close() error {
	return rc.c.Close()
}
