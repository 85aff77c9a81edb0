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

// Package activation inherits a listening socket from systemd when the service
// is socket-activated, and reports readiness back to it.
package activation

import (
	"net"
	"os"
	"strconv"
	"syscall"
)

// systemd places inherited fds sequentially starting here
const listenFdsStart = 3

// GetListener returns the socket passed by systemd, if any. Otherwise
// net.Listen is used to open a new one on laddr. The returned bool reports
// whether the socket was inherited.
func GetListener(family, laddr string) (net.Listener, bool, error) {
	listener, err := systemdListener()
	if err != nil {
		return nil, false, err
	} else if listener != nil {
		return listener, true, nil
	}
	if family == "unix" {
		os.Remove(laddr)
	}
	listener, err = net.Listen(family, laddr)
	return listener, false, err
}

func popEnvInt(name string) (int, error) {
	str := os.Getenv(name)
	os.Unsetenv(name)
	if str == "" {
		return -1, nil
	}
	return strconv.Atoi(str)
}

func systemdListener() (net.Listener, error) {
	// LISTEN_PID is a safety check that the fds were meant for this process
	pid, err := popEnvInt("LISTEN_PID")
	if err != nil || (pid != -1 && pid != os.Getpid()) {
		return nil, err
	}
	nfds, err := popEnvInt("LISTEN_FDS")
	if err != nil || nfds < 1 {
		return nil, err
	}
	os.Unsetenv("LISTEN_FDNAMES")
	return fdListener(listenFdsStart)
}

func fdListener(fd uintptr) (net.Listener, error) {
	if err := syscall.SetNonblock(int(fd), true); err != nil {
		return nil, err
	}
	file := os.NewFile(fd, "FD_"+strconv.Itoa(int(fd)))
	// FileListener dupes the fd so make sure the originally inherited one gets closed
	defer file.Close()
	return net.FileListener(file)
}
