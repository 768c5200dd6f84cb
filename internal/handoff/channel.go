// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package handoff

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// channel wraps one authenticated handoff connection. Writes are
// serialized with a mutex since gorilla/websocket forbids concurrent
// writers on the same connection.
type channel struct {
	conn   *websocket.Conn
	pairID string
	role   role

	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func newChannel(conn *websocket.Conn, pairID string, r role) *channel {
	return &channel{conn: conn, pairID: pairID, role: r, writeTimeout: 30 * time.Second}
}

func (c *channel) send(msg outboundMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *channel) sendError(message string) {
	_ = c.send(outboundMessage{Type: msgTypeError, Message: message})
}

func (c *channel) close() {
	_ = c.conn.Close()
}
