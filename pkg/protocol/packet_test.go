package protocol_test

import (
	"bytes"
	"testing"

	"github.com/merlos/secretpack/pkg/protocol"
)

func TestSplit_Fields(t *testing.T) {
	packet := make([]byte, protocol.PacketSize(41))
	for i := range packet {
		packet[i] = byte(i)
	}

	f, ok := protocol.Split(packet)
	if !ok {
		t.Fatal("Split rejected a well-formed packet")
	}
	if len(packet) != 102 {
		t.Fatalf("packet size = %d, want 102", len(packet))
	}
	if !bytes.Equal(f.KeyID, packet[:6]) {
		t.Errorf("KeyID = %x, want %x", f.KeyID, packet[:6])
	}
	if !bytes.Equal(f.IV, packet[6:22]) {
		t.Errorf("IV = %x, want %x", f.IV, packet[6:22])
	}
	if len(f.Ciphertext) != 48 {
		t.Errorf("Ciphertext length = %d, want 48", len(f.Ciphertext))
	}
	if !bytes.Equal(f.MAC, packet[70:]) {
		t.Errorf("MAC = %x, want %x", f.MAC, packet[70:])
	}
	if !bytes.Equal(f.Authenticated, packet[:70]) {
		t.Error("Authenticated should cover everything before the MAC")
	}
}

func TestSplit_Aliases(t *testing.T) {
	packet := make([]byte, protocol.MinPacketSize)
	f, ok := protocol.Split(packet)
	if !ok {
		t.Fatal("Split rejected minimum size packet")
	}
	f.MAC[0] = 0xff
	if packet[len(packet)-protocol.MACSize] != 0xff {
		t.Error("Frame fields should alias the packet, not copy it")
	}
}

func TestSplit_BadLengths(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"header only", protocol.KeyIDSize + protocol.IVSize},
		{"no ciphertext", protocol.Overhead},
		{"one short", protocol.MinPacketSize - 1},
		{"misaligned", protocol.MinPacketSize + 1},
		{"misaligned by 15", protocol.MinPacketSize + 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := protocol.Split(make([]byte, tt.size)); ok {
				t.Errorf("Split(%d bytes) should fail", tt.size)
			}
		})
	}
}

func TestPaddedSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 16},
		{15, 16},
		{16, 32},
		{17, 32},
		{41, 48},
	}
	for _, tt := range tests {
		if got := protocol.PaddedSize(tt.in); got != tt.want {
			t.Errorf("PaddedSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPacketSizeConstants(t *testing.T) {
	// Verify our size arithmetic is self-consistent.
	if protocol.MinPacketSize != protocol.PacketSize(0) {
		t.Errorf("MinPacketSize = %d, want %d", protocol.MinPacketSize, protocol.PacketSize(0))
	}
	if protocol.OffCiphertext != protocol.KeyIDSize+protocol.IVSize {
		t.Error("OffCiphertext constant mismatch")
	}
	if protocol.KeyHexSize != 64 {
		t.Errorf("KeyHexSize = %d, want 64", protocol.KeyHexSize)
	}
}

func TestRolesDistinct(t *testing.T) {
	roles := []string{
		protocol.RoleSenderCipher,
		protocol.RoleSenderHMAC,
		protocol.RoleReceiverCipher,
		protocol.RoleReceiverHMAC,
	}
	seen := make(map[string]bool)
	for _, r := range roles {
		if seen[r] {
			t.Errorf("duplicate role %q", r)
		}
		seen[r] = true
	}
}

func TestDirection_Roles(t *testing.T) {
	tests := []struct {
		d          protocol.Direction
		cipher     string
		hmac       string
		stringForm string
	}{
		{protocol.SenderToReceiver, protocol.RoleSenderCipher, protocol.RoleSenderHMAC, "sender-to-receiver"},
		{protocol.ReceiverToSender, protocol.RoleReceiverCipher, protocol.RoleReceiverHMAC, "receiver-to-sender"},
	}
	for _, tt := range tests {
		c, h := tt.d.Roles()
		if c != tt.cipher || h != tt.hmac {
			t.Errorf("%s.Roles() = %q, %q; want %q, %q", tt.d, c, h, tt.cipher, tt.hmac)
		}
		if tt.d.String() != tt.stringForm {
			t.Errorf("String() = %q, want %q", tt.d.String(), tt.stringForm)
		}
	}

	var zero protocol.Direction
	if zero != protocol.SenderToReceiver {
		t.Error("zero Direction is not SenderToReceiver")
	}
}
