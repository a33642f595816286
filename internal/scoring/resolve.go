package scoring

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// ModelSource loads trained model records. Version 0 means latest.
type ModelSource interface {
	GetTrainedModel(ctx context.Context, modelID string, version int) (*model.TrainedModel, error)
}

// ParseRef splits "id" or "id@version".
func ParseRef(ref string) (string, int, error) {
	ref = strings.TrimSpace(ref)
	id, v, found := strings.Cut(ref, "@")
	if id == "" {
		return "", 0, eris.Errorf("scoring: empty model reference %q", ref)
	}
	if !found {
		return id, 0, nil
	}
	version, err := strconv.Atoi(v)
	if err != nil || version < 1 {
		return "", 0, eris.Errorf("scoring: invalid model version in %q", ref)
	}
	return id, version, nil
}

// Resolve turns a model reference into a scoring model. The baseline is
// built in; anything else is loaded from src.
func Resolve(ctx context.Context, src ModelSource, ref string) (Model, error) {
	id, version, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if id == BaselineID {
		if version != 0 {
			return nil, &model.ModelNotFoundError{ModelID: id, Version: version}
		}
		return Baseline{}, nil
	}
	if src == nil {
		return nil, &model.ModelNotFoundError{ModelID: id, Version: version}
	}
	rec, err := src.GetTrainedModel(ctx, id, version)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: resolve %s", ref)
	}
	if rec == nil {
		return nil, &model.ModelNotFoundError{ModelID: id, Version: version}
	}
	return NewTrained(rec)
}
