// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package esedb

const fileSignature = 0x89abcdef

// Database states as stored in the file header.
const (
	StateJustCreated    = 1
	StateDirtyShutdown  = 2
	StateCleanShutdown  = 3
	StateBeingConverted = 4
	StateForceDetach    = 5
)

// Page flags.
const (
	PageFlagRoot      = 0x1
	PageFlagLeaf      = 0x2
	PageFlagParent    = 0x4
	PageFlagEmpty     = 0x8
	PageFlagSpaceTree = 0x20
	PageFlagIndex     = 0x40
	PageFlagLongValue = 0x80
)

// Tag (page node) flags.
const (
	TagFlagUnknown = 0x1
	TagFlagDefunct = 0x2
	TagFlagCommon  = 0x4
)

// CatalogPage is the root page of the MSysObjects catalog table.
const CatalogPage = 4

// Catalog entry types.
const (
	catalogTypeTable     = 1
	catalogTypeColumn    = 2
	catalogTypeIndex     = 3
	catalogTypeLongValue = 4
	catalogTypeCallback  = 5
)

// Tagged data flags, stored in the first byte of a tagged value.
const (
	TaggedVariableSize = 0x1
	TaggedCompressed   = 0x2
	TaggedLongValue    = 0x4
	TaggedMultiValue   = 0x8
)

// Column ids below this are fixed, up to 255 variable, above tagged.
const (
	firstVariableColumn = 128
	firstTaggedColumn   = 256
)

const (
	formatVersion       = 0x620
	largePageRevision   = 0x11
	pageHeaderSize      = 40
	largePageHeaderSize = 80
)
