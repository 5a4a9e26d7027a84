// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"errors"
	"math"

	"github.com/ava-labs/avalanchego/database"
)

var (
	errMissingUser   = errors.New("user id is required")
	errMissingLesson = errors.New("lesson id is required")
	errFieldTooLong  = errors.New("field exceeds the maximum encodable length")
	errWrongVersion  = errors.New("wrong codec version")

	_ ProgressState = &progressState{}
)

// ProgressRecord is one user's result on one lesson.
type ProgressRecord struct {
	UserID    string `serialize:"true" json:"userID"`
	LessonID  string `serialize:"true" json:"lessonID"`
	Code      string `serialize:"true" json:"code"`
	Completed bool   `serialize:"true" json:"completed"`
	Score     uint32 `serialize:"true" json:"score"`
	UpdatedAt int64  `serialize:"true" json:"updatedAt"`
}

type ProgressState interface {
	// PutProgress inserts or replaces the record for (UserID, LessonID).
	PutProgress(record ProgressRecord) error
	GetProgress(userID, lessonID string) (ProgressRecord, error)
	ListProgress(userID string) ([]ProgressRecord, error)
}

type progressState struct {
	progressDB database.Database
}

func NewProgressState(db database.Database) ProgressState {
	return &progressState{progressDB: db}
}

func progressKey(userID, lessonID string) []byte {
	return append(userPrefix(userID), lessonID...)
}

// userPrefix terminates the user id with a zero byte so one user's keys are
// never a prefix of another's.
func userPrefix(userID string) []byte {
	key := make([]byte, 0, len(userID)+1)
	key = append(key, userID...)
	return append(key, 0)
}

func (s *progressState) PutProgress(record ProgressRecord) error {
	switch {
	case record.UserID == "":
		return errMissingUser
	case record.LessonID == "":
		return errMissingLesson
	case len(record.Code) > math.MaxUint16:
		return errFieldTooLong
	}
	bytes, err := Codec.Marshal(CodecVersion, &record)
	if err != nil {
		return err
	}
	return s.progressDB.Put(progressKey(record.UserID, record.LessonID), bytes)
}

func (s *progressState) GetProgress(userID, lessonID string) (ProgressRecord, error) {
	bytes, err := s.progressDB.Get(progressKey(userID, lessonID))
	if err != nil {
		return ProgressRecord{}, err
	}
	return parseProgress(bytes)
}

func (s *progressState) ListProgress(userID string) ([]ProgressRecord, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	it := s.progressDB.NewIteratorWithPrefix(userPrefix(userID))
	defer it.Release()

	records := []ProgressRecord{}
	for it.Next() {
		record, err := parseProgress(it.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, it.Error()
}

func parseProgress(bytes []byte) (ProgressRecord, error) {
	record := ProgressRecord{}
	parsedVersion, err := Codec.Unmarshal(bytes, &record)
	if err != nil {
		return ProgressRecord{}, err
	}
	if parsedVersion != CodecVersion {
		return ProgressRecord{}, errWrongVersion
	}
	return record, nil
}
