package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/require"

	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/internal/wire"
	"github.com/lotusmail/lotus/message"
)

func TestPrintTree(t *testing.T) {
	engine := folder.NewEngine()

	engine.ResolveAll(context.Background(), []*imap.MailboxInfo{
		{Name: "INBOX", Delimiter: "/"},
		{Name: "INBOX/Caf&AOk-", Delimiter: "/"},
		{Name: "Sent", Delimiter: "/", Attributes: []string{`\Sent`}},
	})

	var buf bytes.Buffer

	printTree(&buf, engine.Clone())

	require.Equal(t, []string{
		"Inbox (INBOX)",
		"  Café (INBOX/Caf&AOk-)",
		"Drafts",
		"Sent (Sent)",
		"Archive",
		"Junk",
		"Trash",
	}, strings.Split(strings.TrimSpace(buf.String()), "\n"))
}

func TestPrintMessages(t *testing.T) {
	coordinator := message.NewCoordinator(nil, nil, 0)

	messages := coordinator.Convert([]*wire.Message{
		{
			SeqNum: 1,
			Envelope: &imap.Envelope{
				Date:    time.Date(2023, 9, 10, 20, 54, 0, 0, time.UTC),
				Subject: "Hello",
				From:    []*imap.Address{{PersonalName: "Alice", MailboxName: "alice", HostName: "example.com"}},
			},
		},
		{
			SeqNum: 2,
		},
	})

	var buf bytes.Buffer

	printMessages(&buf, messages)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "1  2023-09-10 20:54  Alice <alice@example.com>  Hello", lines[0])
	require.Equal(t, "2", strings.TrimSpace(lines[1]))
}
