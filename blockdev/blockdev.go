/*
 * nanok - Block device registry.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package blockdev is the uniform block-device layer: a small fixed-size
// registry of descriptors keyed by identifier, each carrying an ops
// vtable so callers never know the concrete driver (spec.md §4.5). The
// vtable-over-struct-pointer pattern follows the teacher's device
// registration convention (its emu/device module's operation table).
package blockdev

import (
	"sync"

	"github.com/nanok-project/nanok/util/kerr"
)

// Ops is the operation vtable every driver supplies.
type Ops interface {
	ReadBlocks(lba uint64, count int, buf []byte) kerr.KError
	WriteBlocks(lba uint64, count int, data []byte) kerr.KError
	GetBlockSize() int
	GetBlockCount() uint64
	IsReady() bool
}

// Descriptor is one registered block device.
type Descriptor struct {
	ID          string
	BlockSize   int
	BlockCount  uint64
	Driver      Ops
	Initialized bool
}

const maxDevices = 16

type registry struct {
	mu      sync.Mutex
	devices []*Descriptor
}

var reg registry

// Register adds dev to the registry, rejecting a duplicate identifier or
// a full table.
func Register(id string, driver Ops) kerr.KError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.devices) >= maxDevices {
		return kerr.ErrBusy
	}
	for _, d := range reg.devices {
		if d.ID == id {
			return kerr.ErrExists
		}
	}
	reg.devices = append(reg.devices, &Descriptor{
		ID:          id,
		BlockSize:   driver.GetBlockSize(),
		BlockCount:  driver.GetBlockCount(),
		Driver:      driver,
		Initialized: true,
	})
	return kerr.OK
}

// Unregister removes id, shifting subsequent entries down.
func Unregister(id string) kerr.KError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for i, d := range reg.devices {
		if d.ID == id {
			reg.devices = append(reg.devices[:i], reg.devices[i+1:]...)
			return kerr.OK
		}
	}
	return kerr.ErrDeviceMissing
}

// Lookup returns the descriptor for id, or nil.
func Lookup(id string) *Descriptor {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, d := range reg.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// ReadBlocks dispatches through id's ops vtable.
func ReadBlocks(id string, lba uint64, count int, buf []byte) kerr.KError {
	d := Lookup(id)
	if d == nil {
		return kerr.ErrDeviceMissing
	}
	if !d.Driver.IsReady() {
		return kerr.ErrTimeout
	}
	return d.Driver.ReadBlocks(lba, count, buf)
}

// WriteBlocks dispatches through id's ops vtable.
func WriteBlocks(id string, lba uint64, count int, data []byte) kerr.KError {
	d := Lookup(id)
	if d == nil {
		return kerr.ErrDeviceMissing
	}
	if !d.Driver.IsReady() {
		return kerr.ErrTimeout
	}
	return d.Driver.WriteBlocks(lba, count, data)
}

// List returns the identifiers of every registered device, in
// registration order.
func List() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ids := make([]string, len(reg.devices))
	for i, d := range reg.devices {
		ids[i] = d.ID
	}
	return ids
}
