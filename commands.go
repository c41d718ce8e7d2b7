/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xid"
)

// dispatch parses one REPL line and runs it against e, mirroring the
// teacher's scm.Repl loop shape (read a line, evaluate, print) but with
// a fixed verb table instead of a Scheme reader — this module parses no
// query language of its own (see DESIGN.md).
func dispatch(e *Engine, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "help":
		return helpText

	case "begin":
		return e.Begin()
	case "commit":
		return e.Commit()
	case "abort":
		return e.Abort()

	case "horizon":
		x, err := parseXid(args)
		if err != nil {
			return err.Error()
		}
		return e.Horizon(x)

	case "insert":
		if len(args) < 1 {
			return "usage: insert <payload>"
		}
		_, msg := e.Insert(strings.Join(args, " "))
		return msg

	case "update":
		if len(args) < 2 {
			return "usage: update <tid> <payload>"
		}
		t, err := parseTid(args[0])
		if err != nil {
			return err.Error()
		}
		return e.InPlaceUpdate(t, strings.Join(args[1:], " "))

	case "move":
		if len(args) < 2 {
			return "usage: move <tid> <payload>"
		}
		t, err := parseTid(args[0])
		if err != nil {
			return err.Error()
		}
		_, msg := e.Move(t, strings.Join(args[1:], " "))
		return msg

	case "delete":
		if len(args) < 1 {
			return "usage: delete <tid>"
		}
		t, err := parseTid(args[0])
		if err != nil {
			return err.Error()
		}
		return e.Delete(t)

	case "show":
		if len(args) < 1 {
			return "usage: show <tid>"
		}
		t, err := parseTid(args[0])
		if err != nil {
			return err.Error()
		}
		return e.Describe(t)

	case "":
		return ""

	default:
		return fmt.Sprintf("unknown command %q (try help)", verb)
	}
}

const helpText = `commands:
  begin                 start a transaction, binds it as current
  commit                commit the current transaction
  abort                 abort the current transaction
  horizon <n>           advance RecentGlobalXmin to n
  insert <text>         insert a fresh root tuple, prints its tid
  update <tid> <text>   in-place update: same tid, new payload, pushes undo
  move <tid> <text>     non-in-place update: prints the new tid
  delete <tid>          delete-mark a tuple
  show <tid>            run all six visibility predicates against a tid
  help                  this text
  quit / exit           leave the REPL

a tid prints as (block,offset), e.g. (0,1); pass it back verbatim.`

// parseTid accepts the "(block,offset)" form Describe/Insert print.
func parseTid(s string) (t tid.TID, err error) {
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return t, fmt.Errorf("malformed tid %q, want (block,offset)", s)
	}
	block, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return t, fmt.Errorf("malformed tid block: %w", err)
	}
	offset, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return t, fmt.Errorf("malformed tid offset: %w", err)
	}
	return tid.TID{Block: uint32(block), Offset: uint16(offset)}, nil
}

func parseXid(args []string) (x xid.XID, err error) {
	if len(args) == 0 {
		return x, fmt.Errorf("missing xid argument")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return x, fmt.Errorf("malformed xid: %w", err)
	}
	return xid.XID(n), nil
}
