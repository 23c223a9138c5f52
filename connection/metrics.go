/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package connection

import "time"

// Metrics is implemented by the observability package (C11); it is injected
// the same way command.ServerInfo/ClusterGuard are, so the connection loop
// never imports observability directly. A nil Metrics is valid - every
// call site below is a no-op guard away from it.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	CommandCompleted(name string, d time.Duration, failed bool)
}
