// Copyright © SAS Institute Inc.
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

package logrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webapkverify.log")
	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, path, w.Path())

	_, err = w.Write([]byte("one\n"))
	require.NoError(t, err)
	// rotate out from under the writer
	require.NoError(t, os.Rename(path, path+".1"))
	_, err = w.Write([]byte("two\n"))
	require.NoError(t, err)

	old, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(old))
	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(cur))

	require.NoError(t, w.Reopen())
	_, err = w.Write([]byte("three\n"))
	require.NoError(t, err)
	cur, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", string(cur))
}
