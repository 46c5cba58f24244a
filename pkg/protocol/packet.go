// Package protocol defines the secretpack token wire format.
//
// Packet layout (before websafe encoding):
//
//	[key_id(6)] [iv(16)] [ciphertext(16*n)] [hmac_sha256(32)]
//
// The ciphertext is AES-256-CBC with PKCS#7 padding and decrypts to:
//
//	[nonce(16)] [serialized_value(...)]
//
// The MAC covers everything before it, key_id included, and is computed with
// the sender HMAC key. The cipher and MAC keys are derived from the shared
// master key by hashing it together with one of the role strings below.
//
// Security properties:
//   - Payload opacity via AES-256-CBC under a per-direction derived key
//   - Integrity via encrypt-then-MAC over the full framed packet
//   - Plaintext uniqueness via a random nonce prepended to every body
//   - Cheap wrong-key detection via the key_id prefix, checked in constant time
//     together with the MAC so that neither failure is observable on its own
package protocol

const (
	// KeySize is the size in bytes of the master key and of every derived key.
	KeySize = 32

	// KeyHexSize is the length of a master key in hex form.
	KeyHexSize = KeySize * 2

	// KeyIDSize is the size of the key identifier prefix.
	KeyIDSize = 6

	// IVSize is the AES-CBC initialisation vector size.
	IVSize = 16

	// BlockSize is the AES block size. Ciphertext is always a multiple of it.
	BlockSize = 16

	// NonceSize is the size of the random nonce prepended to every body.
	NonceSize = 16

	// MACSize is the HMAC-SHA256 tag size.
	MACSize = 32

	// MinPacketSize is the smallest well-formed packet: one ciphertext block.
	MinPacketSize = KeyIDSize + IVSize + BlockSize + MACSize // 70 bytes

	// Overhead is the number of packet bytes that are not ciphertext.
	Overhead = KeyIDSize + IVSize + MACSize // 54 bytes
)

// Role strings used for key derivation. Each yields an independent key.
// A new role must use a string never used elsewhere.
const (
	RoleSenderCipher   = "simple-crypto/sender-cipher-key"
	RoleSenderHMAC     = "simple-crypto/sender-hmac-key"
	RoleReceiverCipher = "simple-crypto/receiver-cipher-key"
	RoleReceiverHMAC   = "simple-crypto/receiver-hmac-key"
)

// Direction selects which pair of derived keys protects a packet. Packets
// sealed for one direction never authenticate in the other.
type Direction uint8

const (
	// SenderToReceiver is the default direction, using the sender roles.
	SenderToReceiver Direction = iota

	// ReceiverToSender is the reply direction, using the receiver roles.
	ReceiverToSender
)

// Roles returns the cipher and HMAC role strings for d.
func (d Direction) Roles() (cipherRole, hmacRole string) {
	if d == ReceiverToSender {
		return RoleReceiverCipher, RoleReceiverHMAC
	}
	return RoleSenderCipher, RoleSenderHMAC
}

func (d Direction) String() string {
	if d == ReceiverToSender {
		return "receiver-to-sender"
	}
	return "sender-to-receiver"
}

// Offsets into the raw packet byte slice.
const (
	OffKeyID      = 0
	OffIV         = OffKeyID + KeyIDSize // 6
	OffCiphertext = OffIV + IVSize       // 22
)

// PacketSize returns the packet size for a body of n bytes.
func PacketSize(bodyLen int) int {
	return Overhead + PaddedSize(bodyLen)
}

// PaddedSize returns n rounded up to the next block, always adding at least
// one byte of PKCS#7 padding.
func PaddedSize(n int) int {
	return (n/BlockSize + 1) * BlockSize
}

// Frame is a view of a raw packet split into its fields.
// All fields alias the packet they were split from.
type Frame struct {
	// KeyID is the 6-byte key identifier claimed by the sender.
	KeyID []byte

	// Authenticated is everything covered by the MAC: key_id, iv and ciphertext.
	Authenticated []byte

	// IV is the CBC initialisation vector.
	IV []byte

	// Ciphertext is the encrypted body, a non-empty multiple of BlockSize.
	Ciphertext []byte

	// MAC is the trailing HMAC-SHA256 tag.
	MAC []byte
}

// Split slices a raw packet into its fields without copying.
// It reports false when the length cannot be a well-formed packet.
func Split(packet []byte) (Frame, bool) {
	if len(packet) < MinPacketSize {
		return Frame{}, false
	}
	if (len(packet)-Overhead)%BlockSize != 0 {
		return Frame{}, false
	}
	end := len(packet) - MACSize
	return Frame{
		KeyID:         packet[OffKeyID:OffIV],
		Authenticated: packet[:end],
		IV:            packet[OffIV:OffCiphertext],
		Ciphertext:    packet[OffCiphertext:end],
		MAC:           packet[end:],
	}, true
}
