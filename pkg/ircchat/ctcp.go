package ircchat

import "strings"

// ctcpDelim frames client-to-client control messages inside PRIVMSG text.
const ctcpDelim = "\x01"

// ParseCTCP returns the payload of a control message and whether text is
// one. The closing delimiter is optional.
func ParseCTCP(text string) (string, bool) {
	if !strings.HasPrefix(text, ctcpDelim) {
		return "", false
	}
	payload := strings.TrimPrefix(text, ctcpDelim)
	payload = strings.TrimSuffix(payload, ctcpDelim)
	return payload, true
}

// FormatCTCP frames payload as a control message.
func FormatCTCP(payload string) string {
	return ctcpDelim + payload + ctcpDelim
}
