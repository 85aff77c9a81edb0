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

// Package mmfile loads package files for verification, memory-mapping them
// where the platform allows.
package mmfile

import (
	"io"
	"os"
)

func noop() error { return nil }

func readAll(r io.Reader) ([]byte, func() error, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return data, noop, nil
}

// Open is like Map but also accepts "-" for standard input
func Open(path string) ([]byte, func() error, error) {
	if path == "-" {
		return readAll(os.Stdin)
	}
	return Map(path)
}
