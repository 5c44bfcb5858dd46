package hackchat

import (
	"strconv"
	"strings"
)

// The server overloads the info frame for several notices and only the
// free text tells them apart. These markers match the exact wording of
// hack.chat and break if it changes.
const (
	inviteMarker     = " invited "
	selfInviteMarker = "You invited "
	statsMarker      = " IPs "
)

// parseInfo turns the text of an info frame into an Invite or Stats event.
// ownNick names the inviter when the session sent the invite itself. It
// returns nil for any other notice.
func parseInfo(text, ownNick string) Event {
	switch {
	case strings.Contains(text, inviteMarker):
		return parseInvite(text, ownNick)
	case strings.Contains(text, statsMarker):
		return parseStats(text)
	}
	return nil
}

// "alice invited you to ?mathroom" or "You invited alice to ?mathroom".
func parseInvite(text, ownNick string) Event {
	i := strings.IndexByte(text, '?')
	if i < 0 {
		return nil
	}

	from := ownNick
	if !strings.Contains(text, selfInviteMarker) {
		from = strings.Fields(text)[0]
	}
	return Invite{From: from, Channel: text[i+1:]}
}

// "42 unique IPs in 7 channels". The channel count is the fifth token; when
// that is not a number, the number right before "channels" is used.
func parseStats(text string) Event {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		return nil
	}
	ips, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	channels, err := strconv.Atoi(fields[4])
	if err != nil {
		channels, err = countBefore(fields, "channel")
		if err != nil {
			return nil
		}
	}
	return Stats{UniqueIPs: ips, Channels: channels}
}

func countBefore(fields []string, word string) (int, error) {
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], word) {
			return strconv.Atoi(fields[i-1])
		}
	}
	return 0, strconv.ErrSyntax
}
