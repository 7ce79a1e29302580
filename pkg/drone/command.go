package drone

import (
	"fmt"

	"github.com/getdroned/drone/pkg/controller"
)

// applyCommand validates and applies one controller command. Invalid commands
// mutate nothing and are reported back as CommandRejected; the node process
// never fails on a bad command.
func (d *Drone) applyCommand(cmd controller.Command) {
	if err := d.validateAndApply(cmd); err != nil {
		d.log.Warnf("drone %d: rejected %v: %v", d.id, cmd, err)
		d.sendEvent(controller.CommandRejected{Node: d.id, Command: cmd, Reason: err})
		return
	}

	d.log.Infof("drone %d: applied %v", d.id, cmd)
	d.sendEvent(controller.CommandReceived{Node: d.id, Command: cmd})
}

func (d *Drone) validateAndApply(cmd controller.Command) error {
	if d.crashed {
		// Crash is terminal; observing it again is the only command a
		// crashed node still accepts.
		if _, ok := cmd.(controller.Crash); ok {
			return nil
		}
		return ErrCrashed
	}

	switch c := cmd.(type) {
	case controller.AddNeighbor:
		return d.neighbors.add(c.ID, c.Send)
	case controller.RemoveNeighbor:
		return d.neighbors.remove(c.ID)
	case controller.SetPacketDropRate:
		return d.drop.set(c.Rate)
	case controller.Crash:
		d.crashed = true
		return nil
	default:
		return fmt.Errorf("unsupported command %v", cmd)
	}
}
