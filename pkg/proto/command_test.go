package proto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestCommandAPDU(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "authenticate",
			cmd:  Authenticate(),
			want: "002000010420091210",
		},
		{
			name: "query descriptor",
			cmd:  QueryDescriptor(),
			want: "00d1000000",
		},
		{
			name: "query panel type",
			cmd:  QueryPanelType(),
			want: "f0d800000605000000000e00",
		},
		{
			name: "fragment first",
			cmd:  TransferFragment(0, 0, 0, []byte{0xaa, 0xbb}, false),
			want: "f0d30000040000aabb",
		},
		{
			name: "fragment final",
			cmd:  TransferFragment(0, 2, 5, []byte{0x11}, true),
			want: "f0d30001030205 11",
		},
		{
			name: "refresh start",
			cmd:  RefreshStart(256),
			want: "f0d4858000",
		},
		{
			name: "refresh poll",
			cmd:  RefreshPoll(),
			want: "f0de000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := hex.DecodeString(stripSpaces(tt.want))
			if err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			if got := tt.cmd.APDU(); !bytes.Equal(got, want) {
				t.Errorf("APDU() = %x, want %x", got, want)
			}
		})
	}
}

func stripSpaces(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func TestTransferFragmentFlags(t *testing.T) {
	cmd := TransferFragment(3, 7, 9, []byte{0x01, 0x02, 0x03}, true)

	if cmd.P1 != 3 {
		t.Errorf("P1 = %d, want page 3", cmd.P1)
	}
	if cmd.P2 != 1 {
		t.Errorf("P2 = %d, want final flag", cmd.P2)
	}
	if !bytes.Equal(cmd.Data[:2], []byte{7, 9}) {
		t.Errorf("counter prefix = %x, want 0709", cmd.Data[:2])
	}
	if !cmd.CheckStatus {
		t.Error("transfer must treat status words as fatal")
	}

	if p2 := TransferFragment(3, 7, 9, nil, false).P2; p2 != 0 {
		t.Errorf("non-final P2 = %d, want 0", p2)
	}
}

func TestRefreshPollIsLenient(t *testing.T) {
	cmd := RefreshPoll()
	if cmd.CheckStatus {
		t.Error("poll must not treat status words as fatal")
	}
	if cmd.MaxResponse != 1 {
		t.Errorf("MaxResponse = %d, want 1", cmd.MaxResponse)
	}
}

func TestIsRefreshComplete(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want bool
	}{
		{"complete", []byte{0x00}, true},
		{"busy", []byte{0x01}, false},
		{"empty", nil, false},
		{"complete with trailer", []byte{0x00, 0xff}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRefreshComplete(tt.resp); got != tt.want {
				t.Errorf("IsRefreshComplete(%x) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}
}
