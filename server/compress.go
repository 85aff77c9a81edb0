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
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sassoftware/webapkverify/internal/httperror"
	"github.com/sassoftware/webapkverify/internal/zhttp"
	"github.com/sassoftware/webapkverify/lib/compresshttp"
	"github.com/sassoftware/webapkverify/lib/readercounter"
)

var errUnsupportedEncoding = httperror.Problem{
	Status: http.StatusUnsupportedMediaType,
	Type:   httperror.ProblemBase + "unsupported-encoding",
	Detail: "Content-Encoding must be one of: " + compresshttp.AcceptedEncodings,
}

// decompressBody decodes compressed uploads. The size limit applies to the
// decoded archive, while the access log also records the bytes received.
func decompressBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Accept-Encoding", compresshttp.AcceptedEncodings)
		counter := readercounter.New(req.Body)
		req.Body = counter
		if err := compresshttp.DecompressRequest(req); err != nil {
			if errors.Is(err, compresshttp.ErrUnacceptableEncoding) {
				errUnsupportedEncoding.ServeHTTP(rw, req)
			} else {
				httperror.ReadError(err).ServeHTTP(rw, req)
			}
			return
		}
		zhttp.AppendAccessLog(req, func(e *zerolog.Event) {
			e.Int64("wire_len", counter.N)
		})
		next.ServeHTTP(rw, req)
	})
}
