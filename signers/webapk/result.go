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

package webapk

import (
	"errors"
	"strconv"

	"github.com/sassoftware/webapkverify/lib/zipslicer"
)

// Result is the outcome of verifying a WebAPK
type Result int

const (
	Ok Result = iota
	BadArchive
	ExtraFieldTooLarge
	FileCommentTooLarge
	IncorrectSignature
	SignatureNotFound
	TooManyMetaInfFiles
	BadBlankSpace
	BadV2SigningBlock
)

var resultNames = []string{
	Ok:                  "Ok",
	BadArchive:          "BadArchive",
	ExtraFieldTooLarge:  "ExtraFieldTooLarge",
	FileCommentTooLarge: "FileCommentTooLarge",
	IncorrectSignature:  "IncorrectSignature",
	SignatureNotFound:   "SignatureNotFound",
	TooManyMetaInfFiles: "TooManyMetaInfFiles",
	BadBlankSpace:       "BadBlankSpace",
	BadV2SigningBlock:   "BadV2SigningBlock",
}

func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "Result(" + strconv.Itoa(int(r)) + ")"
}

// Structural results mean the archive layout itself is unacceptable, as
// opposed to a well-formed archive that is not signed by this scheme.
func (r Result) Structural() bool {
	switch r {
	case Ok, IncorrectSignature, SignatureNotFound:
		return false
	}
	return true
}

// VerifyError carries the result of a failed verification along with the
// underlying cause
type VerifyError struct {
	Result Result
	Err    error
}

var (
	ErrBadArchive          = &VerifyError{Result: BadArchive}
	ErrIncorrectSignature  = &VerifyError{Result: IncorrectSignature}
	ErrSignatureNotFound   = &VerifyError{Result: SignatureNotFound}
	ErrTooManyMetaInfFiles = &VerifyError{Result: TooManyMetaInfFiles}
)

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return e.Result.String()
	}
	return e.Result.String() + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Is matches any VerifyError with the same result and no cause, so that
// errors.Is(err, ErrIncorrectSignature) works on wrapped failures.
func (e *VerifyError) Is(target error) bool {
	t, ok := target.(*VerifyError)
	return ok && t.Err == nil && t.Result == e.Result
}

func fail(result Result, err error) error {
	return &VerifyError{Result: result, Err: err}
}

// ResultOf maps any error returned by this package or by zipslicer to a
// Result. Unrecognized errors are treated as BadArchive.
func ResultOf(err error) Result {
	if err == nil {
		return Ok
	}
	var verr *VerifyError
	if errors.As(err, &verr) {
		return verr.Result
	}
	switch {
	case errors.Is(err, zipslicer.ErrFileCommentTooLarge):
		return FileCommentTooLarge
	case errors.Is(err, zipslicer.ErrExtraFieldTooLarge):
		return ExtraFieldTooLarge
	case errors.Is(err, zipslicer.ErrBadBlankSpace):
		return BadBlankSpace
	case errors.Is(err, zipslicer.ErrBadV2SigningBlock):
		return BadV2SigningBlock
	}
	return BadArchive
}

// classify wraps a parser error with its result
func classify(err error) error {
	if err == nil {
		return nil
	}
	var verr *VerifyError
	if errors.As(err, &verr) {
		return err
	}
	return fail(ResultOf(err), err)
}
