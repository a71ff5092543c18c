package password

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	phcAlgorithm = "argon2id"
	phcVersion   = 19 // argon2.Version (0x13)
)

var b64 = base64.RawStdEncoding

// phc is a decoded "$argon2id$v=19$m=<kib>,t=<iter>,p=<par>$<salt>$<key>" string.
type phc struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	var b strings.Builder
	b.WriteString("$" + phcAlgorithm)
	b.WriteString("$v=" + strconv.Itoa(phcVersion))
	b.WriteString("$m=" + strconv.FormatUint(uint64(p.memoryKiB), 10))
	b.WriteString(",t=" + strconv.FormatUint(uint64(p.iterations), 10))
	b.WriteString(",p=" + strconv.FormatUint(uint64(p.parallelism), 10))
	b.WriteString("$" + b64.EncodeToString(p.salt))
	b.WriteString("$" + b64.EncodeToString(p.key))
	return b.String()
}

// parsePHC accepts only argon2id version 19 with all three cost parameters
// in m,t,p order.
func parsePHC(s string) (phc, error) {
	rest, ok := strings.CutPrefix(s, "$"+phcAlgorithm+"$")
	if !ok {
		return phc{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 || fields[0] != "v="+strconv.Itoa(phcVersion) {
		return phc{}, ErrInvalidHash
	}

	var p phc
	costs := strings.Split(fields[1], ",")
	if len(costs) != 3 {
		return phc{}, ErrInvalidHash
	}
	for i, name := range []string{"m", "t", "p"} {
		raw, ok := strings.CutPrefix(costs[i], name+"=")
		if !ok {
			return phc{}, ErrInvalidHash
		}
		bits := 32
		if name == "p" {
			bits = 8
		}
		n, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || n == 0 {
			return phc{}, ErrInvalidHash
		}
		switch name {
		case "m":
			p.memoryKiB = uint32(n)
		case "t":
			p.iterations = uint32(n)
		case "p":
			p.parallelism = uint8(n)
		}
	}

	var err error
	if p.salt, err = b64.DecodeString(fields[2]); err != nil {
		return phc{}, ErrInvalidHash
	}
	if p.key, err = b64.DecodeString(fields[3]); err != nil {
		return phc{}, ErrInvalidHash
	}
	return p, nil
}

// affordable rejects stored costs that would let a forged hash burn memory or
// CPU. Older, cheaper settings stay verifiable.
func (p phc) affordable(limit Argon2idParams) bool {
	switch {
	case p.memoryKiB > 2*limit.MemoryKiB,
		p.iterations > 2*limit.Iterations,
		uint32(p.parallelism) > 2*uint32(limit.Parallelism):
		return false
	case len(p.salt) < 8 || len(p.salt) > 64:
		return false
	case len(p.key) < 16 || len(p.key) > 128:
		return false
	}
	return true
}
