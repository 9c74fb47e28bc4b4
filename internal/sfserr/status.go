// Package sfserr defines the single status-code alphabet that every core
// component reports through: one small, stable enumeration instead of ad hoc
// error values at each layer. The shape follows aistore's cmn/cos error
// helpers (one alphabet of stable codes, `errors.Is`-friendly errno
// conversion) but the alphabet itself, the string table, and the errno
// mapping are SaunaFS's own.
package sfserr

import (
	"fmt"
	"syscall"
)

// Status is a stable, wire-sized status code. The zero value is OK.
type Status uint8

const (
	OK                     Status = 0
	EPERM                  Status = 1
	ENOTDIR                Status = 2
	ENOENT                 Status = 3
	EACCES                 Status = 4
	EEXIST                 Status = 5
	EINVAL                 Status = 6
	ENOTEMPTY              Status = 7
	CHUNKLOST              Status = 8
	OUTOFMEMORY            Status = 9
	INDEXTOOBIG            Status = 10
	LOCKED                 Status = 11
	NOCHUNKSERVERS         Status = 12
	NOCHUNK                Status = 13
	CHUNKBUSY              Status = 14
	REGISTER               Status = 15
	NOTDONE                Status = 16
	GROUPNOTREGISTERED     Status = 17
	NOTSTARTED             Status = 18
	WRONGVERSION           Status = 19
	CHUNKEXIST             Status = 20
	NOSPACE                Status = 21
	IO                     Status = 22
	BNUMTOOBIG             Status = 23
	WRONGSIZE              Status = 24
	WRONGOFFSET            Status = 25
	CANTCONNECT            Status = 26
	WRONGCHUNKID           Status = 27
	DISCONNECTED           Status = 28
	CRC                    Status = 29
	DELAYED                Status = 30
	CANTCREATEPATH         Status = 31
	MISMATCH               Status = 32
	EROFS                  Status = 33
	QUOTA                  Status = 34
	BADSESSIONID           Status = 35
	NOPASSWORD             Status = 36
	BADPASSWORD            Status = 37
	ENOATTR                Status = 38
	ENOTSUP                Status = 39
	ERANGE                 Status = 40
	TIMEOUT                Status = 41
	BADMETADATACHECKSUM    Status = 42
	CHANGELOGINCONSISTENT  Status = 43
	PARSE                  Status = 44
	METADATAVERSIONMISMATCH Status = 45
	NOTLOCKED              Status = 46
	WRONGLOCKID            Status = 47
	NOTPOSSIBLE            Status = 48
	TEMP_NOTPOSSIBLE       Status = 49
	WAITING                Status = 50
	UNKNOWN                Status = 51
	ENAMETOOLONG           Status = 52
	EFBIG                  Status = 53
	EBADF                  Status = 54
	ENODATA                Status = 55
	E2BIG                  Status = 56
	statusMax              Status = 57
)

var statusStrings = [statusMax]string{
	OK:                      "OK",
	EPERM:                   "operation not permitted",
	ENOTDIR:                 "not a directory",
	ENOENT:                  "no such file or directory",
	EACCES:                  "permission denied",
	EEXIST:                  "file exists",
	EINVAL:                  "invalid argument",
	ENOTEMPTY:               "directory not empty",
	CHUNKLOST:               "chunk lost",
	OUTOFMEMORY:             "out of memory",
	INDEXTOOBIG:             "index too big",
	LOCKED:                  "chunk locked",
	NOCHUNKSERVERS:          "no chunk servers",
	NOCHUNK:                 "no such chunk",
	CHUNKBUSY:               "chunk is busy",
	REGISTER:                "incorrect register blob",
	NOTDONE:                 "requested operation not completed",
	GROUPNOTREGISTERED:      "group info is not registered in master server",
	NOTSTARTED:              "write not started",
	WRONGVERSION:            "wrong chunk version",
	CHUNKEXIST:              "chunk already exists",
	NOSPACE:                 "no space left",
	IO:                      "io error",
	BNUMTOOBIG:              "incorrect block number",
	WRONGSIZE:               "incorrect size",
	WRONGOFFSET:             "incorrect offset",
	CANTCONNECT:             "can't connect",
	WRONGCHUNKID:            "incorrect chunk id",
	DISCONNECTED:            "disconnected",
	CRC:                     "crc error",
	DELAYED:                 "operation delayed",
	CANTCREATEPATH:          "can't create path",
	MISMATCH:                "data mismatch",
	EROFS:                   "read-only file system",
	QUOTA:                   "quota exceeded",
	BADSESSIONID:            "bad session id",
	NOPASSWORD:              "password is needed",
	BADPASSWORD:             "incorrect password",
	ENOATTR:                 "attribute not found",
	ENOTSUP:                 "operation not supported",
	ERANGE:                  "result too large",
	TIMEOUT:                 "timeout",
	BADMETADATACHECKSUM:     "metadata checksum not matching",
	CHANGELOGINCONSISTENT:   "changelog inconsistent",
	PARSE:                   "parsing unsuccessful",
	METADATAVERSIONMISMATCH: "metadata version mismatch",
	NOTLOCKED:               "no such lock",
	WRONGLOCKID:             "wrong lock id",
	NOTPOSSIBLE:             "not possible to perform operation in this way",
	TEMP_NOTPOSSIBLE:        "operation temporarily not possible",
	WAITING:                 "waiting for operation completion",
	UNKNOWN:                 "unknown error",
	ENAMETOOLONG:            "name too long",
	EFBIG:                   "file too large",
	EBADF:                   "bad file number",
	ENODATA:                 "no data available",
	E2BIG:                   "argument list too long",
}

// Error renders the stable string for s, matching the distilled alphabet.
// Unknown values (e.g. decoded from a future wider protocol) fall back to a
// generic description rather than panicking.
func (s Status) Error() string {
	if s < statusMax {
		if str := statusStrings[s]; str != "" {
			return str
		}
	}
	return fmt.Sprintf("unknown status(%d)", uint8(s))
}

// errnoTable gives the deterministic OS-level errno for statuses that have a
// natural POSIX counterpart. Statuses with no direct errno analogue (NOTDONE,
// DELAYED, WAITING, ...) are surfaced only through Error()/IsRetryable() —
// callers needing an errno for those get EIO, the same fallback the original
// C bridge used for "no better code".
var errnoTable = map[Status]syscall.Errno{
	OK:             0,
	EPERM:          syscall.EPERM,
	ENOTDIR:        syscall.ENOTDIR,
	ENOENT:         syscall.ENOENT,
	EACCES:         syscall.EACCES,
	EEXIST:         syscall.EEXIST,
	EINVAL:         syscall.EINVAL,
	ENOTEMPTY:      syscall.ENOTEMPTY,
	OUTOFMEMORY:    syscall.ENOMEM,
	LOCKED:         syscall.EWOULDBLOCK,
	CHUNKBUSY:      syscall.EBUSY,
	WRONGVERSION:   syscall.EINVAL,
	CHUNKEXIST:     syscall.EEXIST,
	NOSPACE:        syscall.ENOSPC,
	IO:             syscall.EIO,
	WRONGSIZE:      syscall.EINVAL,
	WRONGOFFSET:    syscall.EINVAL,
	CANTCONNECT:    syscall.ECONNREFUSED,
	DISCONNECTED:   syscall.ENOTCONN,
	CRC:            syscall.EIO,
	MISMATCH:       syscall.EIO,
	EROFS:          syscall.EROFS,
	QUOTA:          syscall.EDQUOT,
	ENOATTR:        syscall.ENODATA,
	ENOTSUP:        syscall.ENOTSUP,
	ERANGE:         syscall.ERANGE,
	TIMEOUT:        syscall.ETIMEDOUT,
	NOTLOCKED:      syscall.EINVAL,
	ENAMETOOLONG:   syscall.ENAMETOOLONG,
	EFBIG:          syscall.EFBIG,
	EBADF:          syscall.EBADF,
	ENODATA:        syscall.ENODATA,
	E2BIG:          syscall.E2BIG,
	NOCHUNK:        syscall.ENOENT,
	NOCHUNKSERVERS: syscall.ENOENT,
}

// ToErrno converts s to the errno a POSIX-facing caller should see. The
// mapping is deterministic: the same Status always yields the same Errno.
func (s Status) ToErrno() syscall.Errno {
	if errno, ok := errnoTable[s]; ok {
		return errno
	}
	return syscall.EIO
}

// class classifies s per the error handling design: unrecoverable failures
// are reported immediately, recoverable-transport failures drive the reader's
// retry/backoff loop, and capacity failures join that same loop while also
// feeding the adaptive cache-expiration controller.
type class uint8

const (
	classUnrecoverable class = iota
	classRecoverableTransport
	classCapacity
	classSoft
)

var classOf = map[Status]class{
	ENOENT:         classUnrecoverable,
	EBADF:          classUnrecoverable,
	EINVAL:         classUnrecoverable,
	ENOTDIR:        classUnrecoverable,
	EACCES:         classUnrecoverable,
	EPERM:          classUnrecoverable,
	ENOTSUP:        classUnrecoverable,
	WRONGCHUNKID:   classUnrecoverable,

	CANTCONNECT:  classRecoverableTransport,
	DISCONNECTED: classRecoverableTransport,
	TIMEOUT:      classRecoverableTransport,
	CRC:          classRecoverableTransport,
	CHUNKBUSY:    classRecoverableTransport,
	WRONGVERSION: classRecoverableTransport,
	IO:           classRecoverableTransport,

	OUTOFMEMORY: classCapacity,
	NOSPACE:     classCapacity,

	DELAYED: classSoft,
	WAITING: classSoft,
}

// IsRetryable reports whether the reader's exponential-backoff retry loop
// (§7: sleep 2^try ms capped at 10s, up to max_retries) should be applied to
// s. Capacity failures are deliberately retryable: they use the same backoff
// scaffold as transport failures even though their root cause differs.
func (s Status) IsRetryable() bool {
	c, ok := classOf[s]
	if !ok {
		return false
	}
	return c == classRecoverableTransport || c == classCapacity
}

// IsCapacity reports whether s originates from resource admission (read
// cache memory or OS memory) rather than from the network or disk, so
// callers can route it to the adaptive cache-expiration controller.
func (s Status) IsCapacity() bool {
	return classOf[s] == classCapacity
}

// FromErrno converts a syscall.Errno observed from the local filesystem
// (e.g. a trash rename, a chunk open) into the core's status alphabet.
func FromErrno(errno syscall.Errno) Status {
	switch errno {
	case 0:
		return OK
	case syscall.ENOENT:
		return ENOENT
	case syscall.EACCES:
		return EACCES
	case syscall.EEXIST:
		return EEXIST
	case syscall.EINVAL:
		return EINVAL
	case syscall.ENOTDIR:
		return ENOTDIR
	case syscall.ENOTEMPTY:
		return ENOTEMPTY
	case syscall.ENOSPC:
		return NOSPACE
	case syscall.ENOMEM:
		return OUTOFMEMORY
	case syscall.EROFS:
		return EROFS
	case syscall.ENAMETOOLONG:
		return ENAMETOOLONG
	case syscall.EFBIG:
		return EFBIG
	case syscall.EBADF:
		return EBADF
	case syscall.ENODATA:
		return ENODATA
	case syscall.E2BIG:
		return E2BIG
	case syscall.ETIMEDOUT:
		return TIMEOUT
	case syscall.ECONNREFUSED:
		return CANTCONNECT
	case syscall.ENOTCONN:
		return DISCONNECTED
	default:
		return IO
	}
}
