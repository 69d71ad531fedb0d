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

package deployment

import (
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
)

const (
	// CV7 / CV8 identify the decoder.
	cvVersion      = 7
	cvManufacturer = 8

	version = 0x40
	// Manufacturer ID reserved for DIY decoders.
	manufacturerDIY = 13
)

// Image builds the default configuration table of the deployment.
func (d Deployment) Image() cv.Image {
	var img cv.Image
	img.Set(cv.CVAddressLow, byte(d.Address))
	img.Set(cv.CVAddressHigh, byte((d.Address>>8)&0x01))
	img.Set(cvVersion, version)
	img.Set(cvManufacturer, manufacturerDIY)
	img.Set(cv.CVOptions, cv.Marker|(d.Options&0x0F))
	img.Set(cv.CVPomAddressLow, byte(d.PomAddress))
	img.Set(cv.CVPomAddressHigh, byte(d.PomAddress>>8))
	for k, f := range d.Functions {
		if k >= cv.MaxBlocks {
			break
		}
		img.Set(cv.BlockCV(k, cv.ParamMode), f.Mode)
		img.Set(cv.BlockCV(k, cv.Param1), f.Param1)
		img.Set(cv.BlockCV(k, cv.Param2), f.Param2)
		img.Set(cv.BlockCV(k, cv.Param3), f.Param3)
		img.Set(cv.BlockCV(k, cv.ParamState), 0)
	}
	return img
}
