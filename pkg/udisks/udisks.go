// SteamOS Automount
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SteamOS Automount.
//
// SteamOS Automount is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SteamOS Automount is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SteamOS Automount.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

// Package udisks is a thin client for the UDisks2 D-Bus service covering
// the block-device property reads and the Filesystem.Mount call the
// automounter needs.
package udisks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/steamos-automount/pkg/helpers/syncutil"
	"github.com/godbus/dbus/v5"
)

const (
	udisks2Service        = "org.freedesktop.UDisks2"
	udisks2BlockPath      = "/org/freedesktop/UDisks2/block_devices"
	udisks2BlockInterface = "org.freedesktop.UDisks2.Block"
	udisks2FSInterface    = "org.freedesktop.UDisks2.Filesystem"
	dbusProperties        = "org.freedesktop.DBus.Properties"
)

// ErrMalformedReply is returned when the daemon answers a call with a
// reply that cannot be stored into the expected shape. This indicates an
// incompatible daemon version, not a transient failure, so callers treat
// it as fatal rather than retrying.
var ErrMalformedReply = errors.New("malformed UDisks2 reply")

// BlockInfo is a snapshot of the identifying properties of a block
// device. Empty strings mean the daemon reports the property as unset.
type BlockInfo struct {
	UUID   string
	Label  string
	FSType string
	Node   string
}

// MountOptions configures a Filesystem.Mount call.
type MountOptions struct {
	// Options is the mount(8) options string, e.g. "rw,noatime".
	Options string
	// AsUser mounts on behalf of this user instead of root, so the mount
	// point lands under that user's /run/media tree.
	AsUser string
	// NoUserInteraction suppresses polkit authentication prompts, which
	// would otherwise hang a call made from a udev-triggered process.
	NoUserInteraction bool
}

func (o MountOptions) variantMap() map[string]dbus.Variant {
	args := make(map[string]dbus.Variant)
	if o.NoUserInteraction {
		args["auth.no_user_interaction"] = dbus.MakeVariant(true)
	}
	if o.Options != "" {
		args["options"] = dbus.MakeVariant(o.Options)
	}
	if o.AsUser != "" {
		args["as-user"] = dbus.MakeVariant(o.AsUser)
	}
	return args
}

// BlockObjectPath returns the UDisks2 object path for a device short
// name, applying the daemon's escaping rules: ASCII alphanumerics pass
// through, every other byte becomes _xx with lowercase hex.
func BlockObjectPath(deviceName string) dbus.ObjectPath {
	var b strings.Builder
	for i := range len(deviceName) {
		c := deviceName[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return dbus.ObjectPath(udisks2BlockPath + "/" + b.String())
}

// Client talks to the UDisks2 daemon over the system bus. The zero value
// is ready to use; the connection is established on first call.
type Client struct {
	conn *dbus.Conn
	mu   syncutil.Mutex
}

func (c *Client) bus() (*dbus.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system D-Bus: %w", err)
	}
	c.conn = conn
	return conn, nil
}

// Close drops the bus connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// BlockInfo reads the identifying properties of a block device.
func (c *Client) BlockInfo(ctx context.Context, deviceName string) (BlockInfo, error) {
	conn, err := c.bus()
	if err != nil {
		return BlockInfo{}, err
	}

	obj := conn.Object(udisks2Service, BlockObjectPath(deviceName))
	call := obj.CallWithContext(ctx, dbusProperties+".GetAll", 0, udisks2BlockInterface)
	if call.Err != nil {
		return BlockInfo{}, fmt.Errorf("failed to read block properties for %s: %w", deviceName, call.Err)
	}

	var props map[string]dbus.Variant
	if err := call.Store(&props); err != nil {
		return BlockInfo{}, fmt.Errorf("%w: properties for %s: body %v", ErrMalformedReply, deviceName, call.Body)
	}

	return BlockInfo{
		UUID:   stringProp(props, "IdUUID"),
		Label:  stringProp(props, "IdLabel"),
		FSType: stringProp(props, "IdType"),
		Node:   bytesProp(props, "Device"),
	}, nil
}

// MountPoints reads the active mount points of the device's filesystem
// from the daemon. An unmounted device has none; that is a normal
// outcome, not an error.
func (c *Client) MountPoints(ctx context.Context, deviceName string) ([]string, error) {
	conn, err := c.bus()
	if err != nil {
		return nil, err
	}

	obj := conn.Object(udisks2Service, BlockObjectPath(deviceName))
	call := obj.CallWithContext(ctx, dbusProperties+".Get", 0, udisks2FSInterface, "MountPoints")
	if call.Err != nil {
		return nil, fmt.Errorf("failed to read mount points for %s: %w", deviceName, call.Err)
	}

	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("%w: mount points for %s: body %v", ErrMalformedReply, deviceName, call.Body)
	}
	raw, ok := v.Value().([][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: mount points for %s: body %v", ErrMalformedReply, deviceName, call.Body)
	}

	points := make([]string, 0, len(raw))
	for _, mp := range raw {
		if len(mp) > 0 {
			points = append(points, strings.TrimRight(string(mp), "\x00"))
		}
	}
	return points, nil
}

// Mount asks the daemon to mount the device's filesystem and returns the
// resulting mount path. The reply must carry a single non-empty string.
func (c *Client) Mount(ctx context.Context, deviceName string, opts MountOptions) (string, error) {
	conn, err := c.bus()
	if err != nil {
		return "", err
	}

	obj := conn.Object(udisks2Service, BlockObjectPath(deviceName))
	call := obj.CallWithContext(ctx, udisks2FSInterface+".Mount", 0, opts.variantMap())
	if call.Err != nil {
		return "", fmt.Errorf("mount call for %s failed: %w", deviceName, call.Err)
	}

	var mountPath string
	if err := call.Store(&mountPath); err != nil {
		return "", fmt.Errorf("%w: mount reply for %s: body %v", ErrMalformedReply, deviceName, call.Body)
	}
	if mountPath == "" {
		return "", fmt.Errorf("%w: empty mount path for %s: body %v", ErrMalformedReply, deviceName, call.Body)
	}

	return mountPath, nil
}

func stringProp(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// bytesProp decodes a NUL-terminated byte-array property.
func bytesProp(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().([]byte); ok && len(b) > 0 {
			return strings.TrimRight(string(b), "\x00")
		}
	}
	return ""
}
