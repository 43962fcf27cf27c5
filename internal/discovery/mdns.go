// ABOUTME: mDNS advertisement of the analyzer service
// ABOUTME: Announces _keyscope._tcp on the local network while running
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/hashicorp/mdns"
)

const serviceType = "_keyscope._tcp"

// Config holds advertisement parameters.
type Config struct {
	ServiceName string
	Port        int
}

// Manager advertises the analyzer via mDNS until stopped.
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an advertisement manager.
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{config: config, ctx: ctx, cancel: cancel}
}

// Advertise announces the service on all non-loopback IPv4 interfaces.
func (m *Manager) Advertise() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("listing local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		serviceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/ws/audio"},
	)
	if err != nil {
		return fmt.Errorf("creating mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("creating mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service %s as %q on port %d", serviceType, m.config.ServiceName, m.config.Port)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop withdraws the advertisement.
func (m *Manager) Stop() {
	m.cancel()
}

func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
