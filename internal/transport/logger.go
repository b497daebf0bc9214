package transport

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const maxLineLength = 512

var escaper = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`)

// writeLog writes one frame to a wire log as "leader[session]: frame".
func writeLog(w io.Writer, leader, sessionID string, frame []byte) {
	line := escaper.Replace(strings.TrimSpace(string(frame)))

	if len(line) > maxLineLength {
		cut := maxLineLength

		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}

		line = line[:cut] + "..."
	}

	if _, err := fmt.Fprintf(w, "%v[%v]: %v\n", leader, sessionID, line); err != nil {
		logrus.WithError(err).Error("Failed to write wire log")
	}
}
