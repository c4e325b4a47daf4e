// Package env provides the common setup of nodes and tools.
package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it's not exposed as is.
const AppID = "ftl.go"

// MachineID retrieves the unique ID identifying the machine, or
// fallback if it's not available.
func MachineID(fallback string) string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id not available: %v", err)
		return fallback
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
