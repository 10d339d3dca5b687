package errprocess

import (
	"errors"

	"video_to_mp3_service/pkg/logger"
)

// Kind definition pipeline error kind
type Kind int

const (
	// KindUnknown unclassified error
	KindUnknown Kind = iota
	// KindStorage blob backend unavailable or rejects op
	KindStorage
	// KindNotFound referenced blob id does not exist
	KindNotFound
	// KindQueue broker unavailable or publish rejected
	KindQueue
	// KindDecode malformed message body
	KindDecode
	// KindTranscode input unprocessable
	KindTranscode
	// KindConfig missing required secret or credential
	KindConfig
	// KindMail SMTP-layer failure (auth, network, timeout)
	KindMail
)

// Transient 回傳該錯誤類型是否為暫時性錯誤
// 暫時性錯誤 -> 不 ack，交給 broker redelivery
// 終止性錯誤 -> ack 丟棄（poison / 不可恢復），只留 log
func (k Kind) Transient() bool {
	switch k {
	case KindStorage, KindQueue, KindMail:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	case KindQueue:
		return "queue"
	case KindDecode:
		return "decode"
	case KindTranscode:
		return "transcode"
	case KindConfig:
		return "config"
	case KindMail:
		return "mail"
	default:
		return "unknown"
	}
}

// Error error with kind
type Error struct {
	ErrKind Kind
	Msg     string
}

func (e *Error) Error() string {
	return e.Msg
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// SetKind set err info with kind
func SetKind(kind Kind, errMsg string) error {
	logger.Log.Error("[" + kind.String() + "] " + errMsg)
	return &Error{ErrKind: kind, Msg: errMsg}
}

// KindOf get the kind from err, KindUnknown if not set
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrKind
	}
	return KindUnknown
}
