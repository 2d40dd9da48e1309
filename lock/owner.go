package lock

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Owner identifies a lease holder. Build it once per process and pass it to
// every Manager of that process.
type Owner string

// NewOwner returns an owner made of the host name, the process id and a random
// component, so two processes on one host never share an identity.
func NewOwner() Owner {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return Owner(fmt.Sprintf("%s_%d_%s", host, os.Getpid(), uuid.NewString()))
}

func (o Owner) String() string {
	return string(o)
}
