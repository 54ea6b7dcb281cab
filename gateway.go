package rfmbridge

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nlowe/rfmbridge/discovery"
)

// DefaultGatewayName is used for gateways configured without a name.
const DefaultGatewayName = "RFM Gateway"

var (
	// ErrInvalidMAC is the error returned by ParseMAC for anything that is not a 48-bit MAC address written as six hex
	// octets separated consistently by ':' or '-', or not separated at all.
	ErrInvalidMAC = errors.New("invalid mac address")
	// ErrDuplicateGateway is the error returned by NewBridge when two gateways share a MAC address.
	ErrDuplicateGateway = errors.New("duplicate gateway")
)

var macPattern = regexp.MustCompile(
	`^[0-9a-f]{2}(?::[0-9a-f]{2}){5}$|^[0-9a-f]{2}(?:-[0-9a-f]{2}){5}$|^[0-9a-f]{12}$`,
)

// ParseMAC validates mac and returns it in lowercase, colon separated form.
func ParseMAC(mac string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(mac))
	if !macPattern.MatchString(lower) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	hex := strings.NewReplacer(":", "", "-", "").Replace(lower)

	var b strings.Builder
	for i := 0; i < len(hex); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hex[i : i+2])
	}

	return b.String(), nil
}

// Gateway is an RFM gateway relaying node frames to MQTT. It implements slog.LogValuer.
type Gateway struct {
	// MAC is the normalized (lowercase, colon separated) MAC address of the gateway.
	MAC string
	// Name is shown in Home Assistant for the gateway device.
	Name string
	// SuggestedArea is passed to Home Assistant when the gateway is first discovered.
	SuggestedArea string
}

// NewGateway validates mac and constructs a Gateway. An empty name is replaced with DefaultGatewayName.
func NewGateway(mac, name string) (Gateway, error) {
	normalized, err := ParseMAC(mac)
	if err != nil {
		return Gateway{}, err
	}

	return Gateway{MAC: normalized, Name: cmp.Or(name, DefaultGatewayName)}, nil
}

// ID returns the MAC address with ':' replaced by '_'. It is used in topics, entity keys and device identifiers.
func (g Gateway) ID() string {
	return strings.ReplaceAll(g.MAC, ":", discovery.IDSep)
}

func (g Gateway) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mac", g.MAC),
		slog.String("name", g.Name),
	)
}

func (g Gateway) device() *Device {
	return &Device{
		DiscoveryID:   g.ID(),
		Name:          g.Name,
		Manufacturer:  Manufacturer,
		Identifiers:   []string{g.ID()},
		Connections:   []DeviceConnection{{Kind: ConnectionMAC, Value: g.MAC}},
		SuggestedArea: g.SuggestedArea,
	}
}
