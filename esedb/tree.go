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

import (
	"io"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// treeWalker visits the leaf entries of a B-tree in storage order: it
// descends along the leftmost branch entries and then follows the
// leaf page chain.
type treeWalker struct {
	pages   *pageReader
	page    *Page
	tag     int
	visited mapset.Set[uint32]
}

func newTreeWalker(pages *pageReader, root uint32) (*treeWalker, error) {
	w := &treeWalker{pages: pages, visited: mapset.NewThreadUnsafeSet[uint32]()}

	number := root
	for {
		page, err := w.visit(number)
		if err != nil {
			return nil, err
		}
		if page.IsLeaf() {
			w.page = page
			return w, nil
		}

		child, err := firstChild(page)
		if err != nil {
			return nil, err
		}
		if child == 0 {
			// branch without live children, nothing to visit
			w.page = page
			w.tag = page.TagCount
			return w, nil
		}
		number = child
	}
}

func firstChild(page *Page) (uint32, error) {
	for i := 1; i < page.TagCount; i++ {
		entry, err := page.Entry(i)
		if err != nil {
			return 0, err
		}
		if entry.Flags&TagFlagDefunct != 0 {
			continue
		}
		return entry.ChildPage()
	}
	return 0, nil
}

func (w *treeWalker) visit(number uint32) (*Page, error) {
	if !w.visited.Add(number) {
		return nil, errors.Wrapf(ErrCorruptPage, "page %d visited twice", number)
	}
	return w.pages.ReadPage(number)
}

// Next returns the next live leaf entry or io.EOF.
func (w *treeWalker) Next() (*Entry, error) {
	for {
		w.tag++
		if w.tag >= w.page.TagCount {
			if !w.page.IsLeaf() || w.page.Next == 0 {
				return nil, io.EOF
			}
			page, err := w.visit(w.page.Next)
			if err != nil {
				return nil, err
			}
			if !page.IsLeaf() {
				return nil, errors.Wrapf(ErrCorruptPage, "page %d: sibling of leaf page %d is no leaf", page.Number, w.page.Number)
			}
			w.page = page
			w.tag = 0
			continue
		}

		entry, err := w.page.Entry(w.tag)
		if err != nil {
			return nil, err
		}
		if entry.Flags&TagFlagDefunct != 0 {
			continue
		}
		return entry, nil
	}
}

// PageNumber returns the page of the entry returned last.
func (w *treeWalker) PageNumber() uint32 {
	return w.page.Number
}
