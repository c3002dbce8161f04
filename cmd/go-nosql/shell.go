package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-nosql/pkg/client"
	"github.com/adfharrison1/go-nosql/pkg/domain"
)

var errQuit = errors.New("quit")

const shellHelp = `Commands:
  INSERT <collection> <document json>
  UPDATE <collection> <document json>
  GET <collection> <id>
  DELETE <collection> <id>
  GET_ALL <collection>
  CREATE_COLLECTION <collection>
  CREATE_INDEX <collection> <field>
  FIND <collection> <field> <value>
  LIST_COLLECTIONS
  HELP
  EXIT
Documents look like {"id":"u1","data":{"name":"Ann"}}; the id may be omitted on INSERT.`

func newShellCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell for a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return runShell(c, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8888", "server address")
	return cmd
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".go-nosql_history")
}

func createCompleter() *readline.PrefixCompleter {
	commands := []string{
		domain.CmdInsert, domain.CmdUpdate, domain.CmdGet, domain.CmdDelete, domain.CmdGetAll,
		domain.CmdCreateCollection, domain.CmdCreateIndex, domain.CmdFind, domain.CmdListCollections,
		"HELP", domain.CmdExit,
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, cmd := range commands {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

func runShell(c *client.Client, addr string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "go-nosql> ",
		HistoryFile:       historyFilePath(),
		AutoComplete:      createCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintf(out, "Connected to %s. Type HELP for commands.\n", addr)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				fmt.Fprintln(out, "(Use EXIT or Ctrl+D to quit)")
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := execLine(c, line, out); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// execLine runs one shell command and prints the reply
func execLine(c *client.Client, line string, out io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	command := strings.ToUpper(fields[0])

	var (
		resp *client.Response
		err  error
	)
	switch command {
	case "HELP":
		fmt.Fprintln(out, shellHelp)
		return nil
	case domain.CmdExit, "QUIT":
		return errQuit
	case domain.CmdListCollections:
		resp, err = c.Do(&domain.Request{Command: domain.CmdListCollections})
	case domain.CmdInsert, domain.CmdUpdate:
		_, args := nextWord(line)
		coll, doc := nextWord(args)
		if coll == "" || doc == "" {
			return fmt.Errorf("usage: %s <collection> <document json>", command)
		}
		if !json.Valid([]byte(doc)) {
			return fmt.Errorf("document is not valid JSON")
		}
		resp, err = c.Do(&domain.Request{Command: command, Collection: coll, Document: json.RawMessage(doc)})
	case domain.CmdGet, domain.CmdDelete:
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <collection> <id>", command)
		}
		resp, err = c.Do(&domain.Request{Command: command, Collection: fields[1], ID: fields[2]})
	case domain.CmdGetAll, domain.CmdCreateCollection:
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <collection>", command)
		}
		resp, err = c.Do(&domain.Request{Command: command, Collection: fields[1]})
	case domain.CmdCreateIndex:
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <collection> <field>", command)
		}
		resp, err = c.CreateIndex(fields[1], fields[2])
	case domain.CmdFind:
		_, args := nextWord(line)
		coll, args := nextWord(args)
		field, value := nextWord(args)
		if coll == "" || field == "" || value == "" {
			return fmt.Errorf("usage: %s <collection> <field> <value>", command)
		}
		resp, err = c.Do(&domain.Request{Command: command, Collection: coll, Field: field, Value: valueJSON(value)})
	default:
		return fmt.Errorf("unknown command %s, type HELP for help", fields[0])
	}
	if err != nil {
		return err
	}
	printResponse(out, resp)
	return nil
}

// nextWord splits off the first whitespace separated word; rest keeps its
// inner spacing
func nextWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

// valueJSON keeps JSON literals as typed and treats anything else as a string
func valueJSON(value string) json.RawMessage {
	if json.Valid([]byte(value)) {
		return json.RawMessage(value)
	}
	b, _ := json.Marshal(value)
	return b
}

func printResponse(out io.Writer, resp *client.Response) {
	status := "OK"
	if !resp.Success {
		status = "FAILED"
	}
	fmt.Fprintf(out, "%s: %s\n", status, resp.Message)
	if len(resp.Data) == 0 {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Data, "", "  "); err != nil {
		out.Write(resp.Data)
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintln(out, pretty.String())
}
