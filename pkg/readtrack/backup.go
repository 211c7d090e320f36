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
	"encoding/json"
	"fmt"
	"io"

	zstd "github.com/klauspost/compress/zstd"
)

// Export writes every book as a zstd-compressed JSON array of records.
func (l *Library) Export(w io.Writer) error {
	records := make([]Record, 0, l.Len())
	for _, b := range l.Books() {
		records = append(records, b.Record())
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err = json.NewEncoder(enc).Encode(records); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Import reads an archive written by Export. Books already in the
// library are replaced. Nothing is added unless every record parses.
func (l *Library) Import(r io.Reader) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	var records []Record
	if err = json.NewDecoder(dec).Decode(&records); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBook, err)
	}
	books := make([]*Book, 0, len(records))
	for _, rec := range records {
		b, err := ParseBook(rec, l.constants)
		if err != nil {
			return 0, err
		}
		books = append(books, b)
	}
	for _, b := range books {
		l.Put(b)
	}
	l.logger.Infof("Imported %d book(s).", len(books))
	return len(books), nil
}
