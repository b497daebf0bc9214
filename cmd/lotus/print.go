package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/message"
)

func printTree(w io.Writer, roots []*folder.Root) {
	for _, root := range roots {
		root.Walk(func(node *folder.Node, depth int) bool {
			name := node.DisplayName()

			if depth == 0 {
				name = root.Role.String()
			}

			fmt.Fprintf(w, "%v%v", strings.Repeat("  ", depth), name)

			if depth > 0 || root.Path != "~" {
				fmt.Fprintf(w, " (%v)", node.Path)
			}

			fmt.Fprintln(w)

			return true
		})
	}
}

func printMessages(w io.Writer, messages []*message.Message) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, msg := range messages {
		var date string

		if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
			date = msg.Envelope.Date.Format("2006-01-02 15:04")
		}

		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\n", msg.SeqNum, date, msg.From(), msg.Subject())
	}

	_ = tw.Flush()
}
