// Package snapshot provides access to the shared annotation folder: a
// multi-writer drop area with no locking primitive. Every file a
// participant did not itself write is read-only input; output names are
// namespaced by participant identity and a monotonically increasing
// sequence so concurrent writers cannot collide.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"
)

// Folder abstracts the shared annotation folder. Implementations never
// delete: other participants' pending drops must survive consolidation.
type Folder interface {
	// List returns the names of every snapshot file in the folder.
	List(ctx context.Context) ([]string, error)

	// Read returns the contents of the named snapshot.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write stores a new snapshot under the given name.
	Write(ctx context.Context, name string, data []byte) error
}

const (
	namePrefix = "Annotation_"
	nameSuffix = ".json"
	nameTS     = "2006.01.02_T15.04.05"
)

// Name builds a snapshot file name for the participant and sequence.
func Name(participant string, sequence int, ts time.Time) string {
	return fmt.Sprintf("%s%s_%06d_%s%s",
		namePrefix, participant, sequence, ts.UTC().Format(nameTS), nameSuffix)
}

// ParseName extracts the participant and sequence from a snapshot file
// name. The second return value is false for files that do not follow the
// naming scheme; consolidation still reads those, it just cannot attribute
// them to a participant sequence.
func ParseName(name string) (participant string, sequence int, ok bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return "", 0, false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	parts := strings.Split(trimmed, "_")
	// participant _ sequence _ date _ Ttime
	if len(parts) < 4 {
		return "", 0, false
	}
	seq, err := strconv.Atoi(parts[len(parts)-3])
	if err != nil {
		return "", 0, false
	}
	participant = strings.Join(parts[:len(parts)-3], "_")
	if participant == "" {
		return "", 0, false
	}
	return participant, seq, true
}

// NextSequence returns 1 + the highest sequence the participant has
// published among the given names, so a fresh drop never reuses a name.
func NextSequence(names []string, participant string) int {
	max := 0
	for _, name := range names {
		p, seq, ok := ParseName(name)
		if ok && p == participant && seq > max {
			max = seq
		}
	}
	return max + 1
}

// Participant derives this installation's identity from the host and user
// names. Dashes join the parts; underscores are squashed so the identity
// survives a round-trip through ParseName.
func Participant() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	username := "unknown-user"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	id := host + "-" + username
	return strings.NewReplacer("_", "-", "/", "-", "\\", "-").Replace(id)
}
