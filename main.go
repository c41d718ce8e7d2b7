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
/*
	zundoctl: interactive REPL over the tuple visibility core.

	Drives one synthetic page against an in-memory undo store and
	oracle, so the undo chain walker and the six visibility predicates
	can be exercised by hand rather than through a buffer manager.
*/
package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"
)

const newprompt = "\033[32mzundo>\033[0m "
const contprompt = "\033[32m  ...>\033[0m "
const resultprompt = "\033[31m=\033[0m "

func main() {
	statsPort := flag.Int("stats-port", 0, "serve live horizon/oracle stats over ws://host:port/stats (0 disables)")
	flag.Parse()

	fmt.Print(`zundoctl Copyright (C) 2023-2026   Carl-Philip Hänsch
This program comes with ABSOLUTELY NO WARRANTY;
This is free software, and you are welcome to redistribute it
under certain conditions; type 'help' for the command list.
`)

	e := NewEngine()
	onexit.Register(func() {
		if err := e.Store.Close(); err != nil {
			fmt.Println("error closing undo store:", err)
		}
	})

	if *statsPort != 0 {
		serveStats(e, *statsPort)
		fmt.Printf("serving live stats on ws://localhost:%d/stats\n", *statsPort)
	}

	repl(e)
}

// repl is the teacher's scm.Repl loop (scm/prompt.go), with the Scheme
// reader/evaluator swapped out for dispatch's fixed verb table.
func repl(e *Engine) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".zundoctl-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r)
				}
			}()
			out := e.Run(func() string { return dispatch(e, line) })
			if out != "" {
				fmt.Print(resultprompt)
				fmt.Println(out)
			}
		}()
	}
}
