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

package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/sassoftware/webapkverify/internal/httperror"
	"github.com/sassoftware/webapkverify/internal/zhttp"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

// VerifyResponse is the body returned by POST /verify
type VerifyResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) serveVerify(rw http.ResponseWriter, req *http.Request) error {
	body := http.MaxBytesReader(rw, req.Body, s.Config.MaxBodyBytes)
	blob, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return httperror.ErrBodyTooLarge
		}
		return httperror.ReadError(err)
	} else if len(blob) == 0 {
		return httperror.ErrEmptyBody
	}
	err = s.verifier.Verify(blob)
	result := webapk.ResultOf(err)
	zhttp.AppendAccessLog(req, func(e *zerolog.Event) {
		e.Stringer("result", result)
		e.Int("size", len(blob))
	})
	resp := VerifyResponse{Result: result.String()}
	status := http.StatusOK
	if err != nil {
		hlog.FromRequest(req).Debug().Err(err).Msg("archive rejected")
		resp.Error = err.Error()
		status = http.StatusUnprocessableEntity
	}
	zhttp.WriteJSON(rw, status, resp)
	return nil
}
