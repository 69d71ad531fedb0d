// Copyright 2024 Ewout Prangsma
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
// Author Ewout Prangsma
//

//go:build linux

package bridge

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// From /usr/include/linux/i2c-dev.h
	i2cSlave = 0x0703
)

type i2cDevice struct {
	file *os.File
}

// OpenI2CDevice opens the device with given address on the I2C bus at
// the given location (e.g. /dev/i2c-1).
func OpenI2CDevice(location string, address uint8) (I2CDevice, error) {
	f, err := os.OpenFile(location, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", location)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(address)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to select i2c address 0x%02x", address)
	}
	return &i2cDevice{file: f}, nil
}

// WriteByteReg writes a byte to given register.
func (d *i2cDevice) WriteByteReg(reg uint8, val uint8) error {
	if _, err := d.file.Write([]byte{reg, val}); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *i2cDevice) Close() error {
	return d.file.Close()
}
