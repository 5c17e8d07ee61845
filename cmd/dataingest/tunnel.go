package main

import (
	"time"

	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/common"
	"github.com/je4/sshtunnel/v2/pkg/sshtunnel"
	"github.com/op/go-logging"
)

// startTunnels opens all configured ssh tunnels, the returned function closes them
func startTunnels(tunnels map[string]common.SSHTunnel, logger *logging.Logger) (func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for name, tunnel := range tunnels {
		if tunnel.Endpoint == nil {
			closeAll()
			return nil, emperror.Wrapf(errNoEndpoint, "tunnel %s", name)
		}
		logger.Infof("starting tunnel %s", name)

		forwards := make(map[string]*sshtunnel.SourceDestination)
		for fwname, fw := range tunnel.Forward {
			if fw.Local == nil || fw.Remote == nil {
				closeAll()
				return nil, emperror.Wrapf(errNoEndpoint, "forward %s of tunnel %s", fwname, name)
			}
			forwards[fwname] = &sshtunnel.SourceDestination{
				Local: &sshtunnel.Endpoint{
					Host: fw.Local.Host,
					Port: fw.Local.Port,
				},
				Remote: &sshtunnel.Endpoint{
					Host: fw.Remote.Host,
					Port: fw.Remote.Port,
				},
			}
		}

		t, err := sshtunnel.NewSSHTunnel(
			tunnel.User,
			tunnel.PrivateKey,
			&sshtunnel.Endpoint{
				Host: tunnel.Endpoint.Host,
				Port: tunnel.Endpoint.Port,
			},
			forwards,
			logger,
		)
		if err != nil {
			closeAll()
			return nil, emperror.Wrapf(err, "cannot create tunnel %v@%v", tunnel.User, tunnel.Endpoint)
		}
		if err := t.Start(); err != nil {
			closeAll()
			return nil, emperror.Wrapf(err, "cannot start sshtunnel %v", t.String())
		}
		closers = append(closers, func() { t.Close() })
	}
	// if tunnels are made, wait until connection is established
	if len(tunnels) > 0 {
		time.Sleep(2 * time.Second)
	}
	return closeAll, nil
}
