package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel identifies the chat channel plain macro lines are sent to.
type Channel string

const (
	ChannelWhisper     Channel = "whisper"
	ChannelSay         Channel = "say"
	ChannelParty       Channel = "party"
	ChannelAlliance    Channel = "alliance"
	ChannelShout       Channel = "shout"
	ChannelYell        Channel = "yell"
	ChannelFreeCompany Channel = "fc"
	ChannelEcho        Channel = "echo"
	ChannelEmote       Channel = "emote"
)

// LinkshellCount is the number of numbered linkshell slots per family.
const LinkshellCount = 8

// Linkshell returns the channel for linkshell slot n (1-8).
func Linkshell(n int) Channel {
	return Channel("ls" + strconv.Itoa(n))
}

// CrossWorldLinkshell returns the channel for cross-world linkshell slot n (1-8).
func CrossWorldLinkshell(n int) Channel {
	return Channel("cwls" + strconv.Itoa(n))
}

var channelMarkers = map[Channel]string{
	ChannelWhisper:     "/tell",
	ChannelSay:         "/say",
	ChannelParty:       "/p",
	ChannelAlliance:    "/a",
	ChannelShout:       "/shout",
	ChannelYell:        "/yell",
	ChannelFreeCompany: "/fc",
	ChannelEcho:        "/echo",
	ChannelEmote:       "/em",
}

var channelAliases = map[string]Channel{
	"whisper":     ChannelWhisper,
	"tell":        ChannelWhisper,
	"w":           ChannelWhisper,
	"t":           ChannelWhisper,
	"say":         ChannelSay,
	"s":           ChannelSay,
	"party":       ChannelParty,
	"p":           ChannelParty,
	"alliance":    ChannelAlliance,
	"a":           ChannelAlliance,
	"shout":       ChannelShout,
	"sh":          ChannelShout,
	"yell":        ChannelYell,
	"y":           ChannelYell,
	"fc":          ChannelFreeCompany,
	"freecompany": ChannelFreeCompany,
	"echo":        ChannelEcho,
	"e":           ChannelEcho,
	"emote":       ChannelEmote,
	"em":          ChannelEmote,
}

// channelOrder is the cycling order used by interactive hosts.
var channelOrder []Channel

func init() {
	channelOrder = []Channel{
		ChannelSay, ChannelYell, ChannelShout, ChannelParty, ChannelAlliance,
		ChannelFreeCompany, ChannelWhisper, ChannelEcho, ChannelEmote,
	}
	for i := 1; i <= LinkshellCount; i++ {
		n := strconv.Itoa(i)
		ls := Linkshell(i)
		cw := CrossWorldLinkshell(i)
		channelMarkers[ls] = "/l" + n
		channelMarkers[cw] = "/cwl" + n
		channelAliases["ls"+n] = ls
		channelAliases["l"+n] = ls
		channelAliases["linkshell"+n] = ls
		channelAliases["cwls"+n] = cw
		channelAliases["cwl"+n] = cw
		channelAliases["cwlinkshell"+n] = cw
		channelOrder = append(channelOrder, ls)
	}
	for i := 1; i <= LinkshellCount; i++ {
		channelOrder = append(channelOrder, CrossWorldLinkshell(i))
	}
}

// ParseChannel resolves a channel name or alias, case-insensitively.
// A leading slash is accepted so "/sh" and "sh" are equivalent.
func ParseChannel(name string) (Channel, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "/")
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	if ch, ok := channelAliases[key]; ok {
		return ch, nil
	}
	return "", fmt.Errorf("unknown channel %q", name)
}

// Marker returns the chat command prefix for the channel.
func (c Channel) Marker() (string, bool) {
	marker, ok := channelMarkers[c]
	return marker, ok
}

// Valid reports whether the channel is known.
func (c Channel) Valid() bool {
	_, ok := channelMarkers[c]
	return ok
}

// Channels returns all known channels in interactive cycling order.
func Channels() []Channel {
	out := make([]Channel, len(channelOrder))
	copy(out, channelOrder)
	return out
}

// NextChannel returns the channel after c in cycling order; step may be negative.
func NextChannel(c Channel, step int) Channel {
	n := len(channelOrder)
	idx := 0
	for i, ch := range channelOrder {
		if ch == c {
			idx = i
			break
		}
	}
	idx = ((idx+step)%n + n) % n
	return channelOrder[idx]
}

// Target is the destination of a whisper.
type Target struct {
	Name  string `json:"name" yaml:"name"`
	World string `json:"world,omitempty" yaml:"world,omitempty"`
}

// ParseTarget splits "First Last@World" on the last '@'. An empty input yields
// the zero Target.
func ParseTarget(raw string) Target {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}
	}
	if idx := strings.LastIndex(raw, "@"); idx >= 0 {
		return Target{
			Name:  strings.TrimSpace(raw[:idx]),
			World: strings.TrimSpace(raw[idx+1:]),
		}
	}
	return Target{Name: raw}
}

// Resolved reports whether the target names someone to whisper.
func (t Target) Resolved() bool {
	return strings.TrimSpace(t.Name) != ""
}

// String renders the target the way the tell command expects it.
func (t Target) String() string {
	if t.World == "" {
		return t.Name
	}
	return t.Name + "@" + t.World
}
