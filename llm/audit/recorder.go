package audit

import (
	"context"
	"fmt"

	"github.com/stardustagi/BlendGPT/libs/databases"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/uuid"
	"github.com/stardustagi/BlendGPT/llm/workflow"
	"github.com/stardustagi/BlendGPT/utils"
	"go.uber.org/zap"
)

// Recorder writes a Record per finished task. The script text itself is not
// stored, only its size and an HMAC fingerprint. Without a fingerprint key
// no HMAC is computed and Verify is unavailable.
type Recorder struct {
	dao    databases.Dao
	key    string
	logger *zap.Logger
}

// NewRecorder syncs the chat_run table and returns a Recorder.
func NewRecorder(dao databases.Dao, fingerprintKey string) (*Recorder, error) {
	if err := dao.Sync(new(Record)); err != nil {
		return nil, err
	}
	r := &Recorder{dao: dao, key: fingerprintKey, logger: logs.GetLogger("audit")}
	if fingerprintKey == "" {
		r.logger.Warn("no fingerprint key configured, script fingerprints are disabled")
	}
	return r, nil
}

// OnFinished implements workflow.Observer.
func (r *Recorder) OnFinished(_ context.Context, res workflow.Result) {
	rec := &Record{Id: uuid.NextID()}
	rec.fill(res)
	if r.key != "" && res.Text != "" {
		rec.ScriptHmac = utils.GenerateHMAC(res.Text, r.key)
	}
	if res.Err != nil {
		se := errors.From(res.Err)
		rec.ErrCode, rec.Error = se.Code(), se.Error()
	}
	if _, err := r.dao.InsertOne(rec); err != nil {
		r.logger.Error("insert chat_run", logs.String("task", res.TaskID), logs.ErrorInfo(err))
	}
}

// Recent returns the newest records first.
func (r *Recorder) Recent(limit int) ([]Record, error) {
	rows := make([]Record, 0, limit)
	if err := r.dao.FindMany(&rows, "id", limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// Fingerprints reports whether records carry a script HMAC.
func (r *Recorder) Fingerprints() bool { return r.key != "" }

// Verify reports whether script is the one recorded under record id.
func (r *Recorder) Verify(id int64, script string) (bool, error) {
	if r.key == "" {
		return false, errors.WithMsg(errors.ErrInvalidRequest, "script fingerprints are disabled")
	}
	var rec Record
	ok, err := r.dao.FindById(id, &rec)
	if err != nil {
		return false, errors.Wrap(errors.ErrInternal, err)
	}
	if !ok {
		return false, errors.WithMsg(errors.ErrInvalidRequest, fmt.Sprintf("run %d not found", id))
	}
	return utils.VerifyHMAC(script, r.key, rec.ScriptHmac), nil
}
