/*
 Copyright (C) 2022-2025, The readtrack Go Library Authors

 This file is part of readtrack: A Go Library for Daily Reading Plans.

 This library is free software; you can redistribute it and/or
 modify it under the terms of the GNU Lesser General Public
 License as published by the Free Software Foundation; either
 version 2.1 of the License, or any later version.

 This library is distributed in the hope that it will be useful,
 but WITHOUT ANY WARRANTY; without even the implied warranty of
 MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
 See the GNU Lesser General Public License for more details.

 A copy of the GNU Lesser General Public License is provided by this
 library under LICENSE.md. To see more details about the authors and
 contributors, please see AUTHORS.md. If absent, Both of which can be
 found within the GitHub repository:
          https://github.com/justincpresley/readtrack
*/

package readtrack

import (
	bitset "github.com/justincpresley/readtrack/util/bitset"
)

type Constants struct {
	ReadSetSize            uint    // bytes backing each book's read set
	RefreshInterval        uint    // (ms) milliseconds
	RefreshRandomness      float32 // percentage variance 0.00<=x<=1.00
	CountChangeChannelSize uint
}

func GetDefaultConstants() *Constants {
	return &Constants{
		ReadSetSize:            bitset.DefaultSize,
		RefreshInterval:        60000,
		RefreshRandomness:      0.10,
		CountChangeChannelSize: 64,
	}
}
