/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shared

import (
	"github.com/spf13/pflag"
)

var (
	argMaxMetaInf      int
	argMaxExtraField   int
	argMaxSigningBlock int64
)

// AddLimitFlags registers flags that override the verifier section of the
// configuration file
func AddLimitFlags(fs *pflag.FlagSet) {
	fs.IntVar(&argMaxMetaInf, "max-meta-inf-files", 0, "Override verifier.max_meta_inf_files")
	fs.IntVar(&argMaxExtraField, "max-extra-field", 0, "Override verifier.max_extra_field")
	fs.Int64Var(&argMaxSigningBlock, "max-signing-block", 0, "Override verifier.max_signing_block")
}

// ApplyLimitFlags copies any limit flags that were set on the command line
// into CurrentConfig
func ApplyLimitFlags(fs *pflag.FlagSet) {
	v := CurrentConfig.Verifier
	if fs.Changed("max-meta-inf-files") {
		n := argMaxMetaInf
		v.MaxMetaInfFiles = &n
	}
	if fs.Changed("max-extra-field") {
		n := argMaxExtraField
		v.MaxExtraField = &n
	}
	if fs.Changed("max-signing-block") {
		n := argMaxSigningBlock
		v.MaxSigningBlock = &n
	}
}
