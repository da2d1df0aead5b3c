package sim

import (
	"fmt"
	"net/netip"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
)

// MaxNodes is the number of distinct addresses AddressFor can produce.
const MaxNodes = 256 * 255

// AddressFor maps a participant index to 127.0.(i/255).(i%255).
func AddressFor(i int) (gossip.Address, error) {
	if i < 0 || i >= MaxNodes {
		return gossip.Address{}, fmt.Errorf("address for index %d: %w", i, ErrTooManyNodes)
	}
	return netip.AddrFrom4([4]byte{127, 0, byte(i / 255), byte(i % 255)}), nil
}
