package models

import (
	"math"
	"testing"
	"time"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		input string
		want  Channel
	}{
		{"say", ChannelSay},
		{"S", ChannelSay},
		{"/sh", ChannelShout},
		{"Yell", ChannelYell},
		{"free-company", ChannelFreeCompany},
		{"tell", ChannelWhisper},
		{"ls3", Linkshell(3)},
		{"linkshell8", Linkshell(8)},
		{"cwl2", CrossWorldLinkshell(2)},
		{"emote", ChannelEmote},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseChannel(tt.input)
			if err != nil {
				t.Fatalf("ParseChannel(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseChannel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseChannel("ls9"); err == nil {
		t.Fatal("expected error for unknown linkshell slot")
	}
}

func TestChannelMarker(t *testing.T) {
	marker, ok := Linkshell(4).Marker()
	if !ok || marker != "/l4" {
		t.Fatalf("Linkshell(4).Marker() = %q, %v", marker, ok)
	}
	marker, ok = CrossWorldLinkshell(1).Marker()
	if !ok || marker != "/cwl1" {
		t.Fatalf("CrossWorldLinkshell(1).Marker() = %q, %v", marker, ok)
	}
	if _, ok := Channel("bogus").Marker(); ok {
		t.Fatal("expected unknown channel to have no marker")
	}
}

func TestNextChannelWraps(t *testing.T) {
	all := Channels()
	last := all[len(all)-1]
	if got := NextChannel(last, 1); got != all[0] {
		t.Fatalf("NextChannel(last, 1) = %q, want %q", got, all[0])
	}
	if got := NextChannel(all[0], -1); got != last {
		t.Fatalf("NextChannel(first, -1) = %q, want %q", got, last)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw      string
		want     Target
		resolved bool
	}{
		{"", Target{}, false},
		{"Alisaie Leveilleur@Ragnarok", Target{Name: "Alisaie Leveilleur", World: "Ragnarok"}, true},
		{"Solo", Target{Name: "Solo"}, true},
		{"  @Phoenix", Target{World: "Phoenix"}, false},
	}

	for _, tt := range tests {
		got := ParseTarget(tt.raw)
		if got != tt.want {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
		if got.Resolved() != tt.resolved {
			t.Errorf("ParseTarget(%q).Resolved() = %v, want %v", tt.raw, got.Resolved(), tt.resolved)
		}
	}
}

func TestStepConstructors(t *testing.T) {
	if got := Wait(-3); got.Seconds != 0 {
		t.Fatalf("Wait(-3).Seconds = %v, want 0", got.Seconds)
	}
	if got := Wait(1.5).Duration(); got != 1500*time.Millisecond {
		t.Fatalf("Wait(1.5).Duration() = %v", got)
	}
	if got := Send("/say hi").Duration(); got != 0 {
		t.Fatalf("Send duration = %v, want 0", got)
	}
	if got := Wait(math.Inf(1)).Duration(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("Wait(+Inf).Duration() = %v, want max duration", got)
	}
	if got := Wait(1e12).Duration(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("Wait(1e12).Duration() = %v, want max duration", got)
	}
	if got := (Step{Kind: StepKindWait, Seconds: 1e300}).Duration(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("unclamped huge wait Duration() = %v, want max duration", got)
	}
	if got := Wait(math.NaN()); got.Seconds != 0 {
		t.Fatalf("Wait(NaN).Seconds = %v, want 0", got.Seconds)
	}
	steps := []Step{Send("a"), Wait(1), Send("b")}
	if got := CountSends(steps); got != 2 {
		t.Fatalf("CountSends = %d, want 2", got)
	}
}
