// Copyright 2026 The BistroKit Authors
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

package provision

import (
	"strings"
)

// Kind classifies a script statement for execution policy.
type Kind int

const (
	// KindGeneral statements execute as-is and any error is fatal.
	KindGeneral Kind = iota
	// KindCreate statements (CREATE TABLE, CREATE INDEX, ...) tolerate
	// duplicate-object errors: the object already existing means a prior
	// partial run got this far, which is fine.
	KindCreate
	// KindSeed statements (INSERT) tolerate unique violations for the same
	// reason.
	KindSeed
	// KindRetargeted statements (CREATE DATABASE, USE, \connect) are not
	// executed: the provisioner has already created and connected to the
	// target database, so these are satisfied by construction.
	KindRetargeted
)

// Statement is one executable unit of a provisioning script.
type Statement struct {
	SQL  string
	Kind Kind
}

// SplitScript splits a SQL script into statements on semicolons while
// respecting single-quoted strings, dollar-quoted bodies and comments.
// Naive semicolon splitting breaks on seed values and function bodies.
func SplitScript(script string) []Statement {
	var stmts []Statement
	var buf strings.Builder

	flush := func() {
		sql := strings.TrimSpace(buf.String())
		buf.Reset()
		if sql == "" {
			return
		}
		stmts = append(stmts, Statement{SQL: sql, Kind: classify(sql)})
	}

	i := 0
	n := len(script)
	for i < n {
		c := script[i]

		switch {
		case c == '-' && i+1 < n && script[i+1] == '-':
			// Line comment: skip to end of line, keep nothing.
			for i < n && script[i] != '\n' {
				i++
			}
			continue

		case c == '/' && i+1 < n && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = n
				continue
			}
			i += end + 4
			continue

		case c == '\'':
			// Single-quoted literal; '' is an escaped quote.
			buf.WriteByte(c)
			i++
			for i < n {
				buf.WriteByte(script[i])
				if script[i] == '\'' {
					if i+1 < n && script[i+1] == '\'' {
						i++
						buf.WriteByte(script[i])
					} else {
						break
					}
				}
				i++
			}
			i++
			continue

		case c == '$':
			// Possible dollar-quoted body: $tag$ ... $tag$
			if tag, ok := dollarTag(script[i:]); ok {
				end := strings.Index(script[i+len(tag):], tag)
				if end < 0 {
					buf.WriteString(script[i:])
					i = n
					continue
				}
				buf.WriteString(script[i : i+len(tag)+end+len(tag)])
				i += len(tag) + end + len(tag)
				continue
			}
			buf.WriteByte(c)
			i++
			continue

		case c == ';':
			flush()
			i++
			continue

		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()

	return stmts
}

// dollarTag returns the leading dollar-quote tag of s ("$$", "$body$", ...)
// if s starts one.
func dollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1], true
		}
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return "", false
		}
	}
	return "", false
}

func classify(sql string) Kind {
	head := strings.ToUpper(sql)
	if len(head) > 40 {
		head = head[:40]
	}
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return KindGeneral
	}

	switch fields[0] {
	case "CREATE":
		if len(fields) > 1 && fields[1] == "DATABASE" {
			return KindRetargeted
		}
		return KindCreate
	case "USE", "\\CONNECT", "\\C":
		return KindRetargeted
	case "INSERT":
		return KindSeed
	}
	return KindGeneral
}
