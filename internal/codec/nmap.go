package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"osintgraph/internal/domain"
)

const (
	RelationHostnameOf = "hostname_of"
	RelationRuns       = "runs"
)

// NmapCodec imports nmap XML output (nmap -oX). Every host that is up
// becomes an entity keyed by its address; reverse-DNS names and detected
// products become entities linked to it, so hosts sharing a product end up
// connected.
type NmapCodec struct{}

// NewNmapCodec creates a new nmap XML codec
func NewNmapCodec() *NmapCodec {
	return &NmapCodec{}
}

// Format returns the codec format identifier
func (c *NmapCodec) Format() string {
	return "nmap"
}

// Parse imports an nmap XML run
func (c *NmapCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	var run nmap.Run
	if err := xml.NewDecoder(r).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}
	return c.fromRun(&run), nil
}

func (c *NmapCodec) fromRun(run *nmap.Run) *domain.Fragment {
	fragment := domain.NewFragment(c.Format())

	for _, host := range run.Hosts {
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}

		ip := primaryAddress(host.Addresses)
		attrs := domain.Attributes{
			"kind":   domain.String("ip"),
			"source": domain.String("nmap"),
			"status": domain.String(host.Status.State),
		}

		for _, addr := range host.Addresses {
			if addr.AddrType == "mac" {
				attrs["mac_address"] = domain.String(strings.ToUpper(addr.Addr))
				if addr.Vendor != "" {
					attrs["mac_vendor"] = domain.String(addr.Vendor)
				}
			}
		}

		openPorts := make([]domain.Value, 0)
		services := make([]domain.Value, 0)
		products := make([]string, 0)
		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			openPorts = append(openPorts, domain.Int(int(port.ID)))

			svc := map[string]domain.Value{
				"port":     domain.Int(int(port.ID)),
				"protocol": domain.String(port.Protocol),
			}
			if port.Service.Name != "" {
				svc["service"] = domain.String(port.Service.Name)
			}
			if port.Service.Product != "" {
				svc["product"] = domain.String(port.Service.Product)
				products = append(products, productID(port.Service.Product, port.Service.Version))
			}
			if port.Service.Version != "" {
				svc["version"] = domain.String(port.Service.Version)
			}
			if port.Service.ExtraInfo != "" {
				svc["extra_info"] = domain.String(port.Service.ExtraInfo)
			}
			services = append(services, domain.Map(svc))
		}
		attrs["open_ports"] = domain.List(openPorts...)
		attrs["port_count"] = domain.Int(len(openPorts))
		if len(services) > 0 {
			attrs["services"] = domain.List(services...)
		}

		if len(host.OS.Matches) > 0 {
			match := host.OS.Matches[0]
			attrs["os"] = domain.String(match.Name)
			if acc, err := domain.FromAny(match.Accuracy); err == nil {
				attrs["os_accuracy"] = acc
			}
		}

		if len(host.Hostnames) > 0 {
			attrs["reverse_dns"] = domain.String(host.Hostnames[0].Name)
		}

		fragment.AddEntity(ip, attrs)

		for _, hn := range host.Hostnames {
			name := strings.TrimSuffix(strings.ToLower(hn.Name), ".")
			if name == "" || name == ip {
				continue
			}
			fragment.AddEntity(name, domain.Attributes{
				"kind":   domain.String("hostname"),
				"source": domain.String("nmap"),
			})
			fragment.AddRelation(name, ip, RelationHostnameOf)
		}

		for _, product := range products {
			fragment.AddEntity(product, domain.Attributes{
				"kind":   domain.String("product"),
				"source": domain.String("nmap"),
			})
			fragment.AddRelation(ip, product, RelationRuns)
		}
	}

	return fragment
}

// primaryAddress prefers the IPv4 address, then IPv6, then whatever is
// listed first
func primaryAddress(addrs []nmap.Address) string {
	for _, want := range []string{"ipv4", "ipv6"} {
		for _, addr := range addrs {
			if addr.AddrType == want {
				return canonicalIP(addr.Addr)
			}
		}
	}
	return canonicalIP(addrs[0].Addr)
}

func canonicalIP(s string) string {
	if parsed := net.ParseIP(s); parsed != nil {
		return parsed.String()
	}
	return s
}

func productID(product, version string) string {
	id := "product:" + strings.ToLower(strings.TrimSpace(product))
	if v := strings.TrimSpace(version); v != "" {
		id += " " + v
	}
	return id
}
