package checksums

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Algorithm names accepted by Compute.
const (
	Md5    = "md5"
	Sha256 = "sha256"
)

// Sums holds the hex digests produced by one streaming pass. Fields for
// algorithms that were not requested are empty.
type Sums struct {
	Md5    string
	Sha256 string
}

// Compute streams the file once and fills in a digest for each requested
// algorithm. Memory use is bounded by the copy buffer regardless of file
// size. A read failure discards any partial digests.
func Compute(filePath string, algorithms ...string) (Sums, error) {
	if len(algorithms) == 0 {
		algorithms = []string{Md5, Sha256}
	}

	var md5Hasher hash.Hash
	var shaHasher hash.Hash
	writers := make([]io.Writer, 0, 2)
	for _, alg := range algorithms {
		switch alg {
		case Md5:
			if md5Hasher == nil {
				md5Hasher = md5.New()
				writers = append(writers, md5Hasher)
			}
		case Sha256:
			if shaHasher == nil {
				shaHasher = sha256.New()
				writers = append(writers, shaHasher)
			}
		default:
			return Sums{}, errors.Errorf("unknown checksum algorithm: %s", alg)
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Sums{}, errors.Wrap(err, "failed to open file for hashing")
	}
	defer f.Close()

	if _, err = io.Copy(io.MultiWriter(writers...), f); err != nil {
		return Sums{}, errors.Wrapf(err, "failed reading %s mid-stream", filePath)
	}

	sums := Sums{}
	if md5Hasher != nil {
		sums.Md5 = hex.EncodeToString(md5Hasher.Sum(nil))
	}
	if shaHasher != nil {
		sums.Sha256 = hex.EncodeToString(shaHasher.Sum(nil))
	}
	return sums, nil
}
