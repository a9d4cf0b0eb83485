package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

// MetricsField is the optional RunFlow request field carrying a raw snapshot.
const MetricsField = "metrics"

// healthUnknown is reported when no health document has been written yet.
const healthUnknown = "unknown"

// FromProtoRunRequest extracts the optional metrics override. A nil map means
// the configured metrics source should be used.
func FromProtoRunRequest(req *structpb.Struct) (map[string]any, error) {
	if req == nil {
		return nil, nil
	}
	v, ok := req.GetFields()[MetricsField]
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StructValue:
		return kind.StructValue.AsMap(), nil
	default:
		return nil, fmt.Errorf("%s must be an object", MetricsField)
	}
}

// ToProtoRunRequest builds a RunFlow request; raw may be nil.
func ToProtoRunRequest(raw map[string]any) (*structpb.Struct, error) {
	if raw == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	return structpb.NewStruct(map[string]any{MetricsField: raw})
}

// ToProtoRunResult converts a run into its wire shape.
func ToProtoRunResult(res models.RunResult) (*structpb.Struct, error) {
	return toStruct(res)
}

// ToProtoHealth renders the health document; ok is false when none exists yet.
func ToProtoHealth(h models.HealthStatus, ok bool) (*structpb.Struct, error) {
	if !ok {
		h = models.HealthStatus{Status: healthUnknown}
	}
	return toStruct(h)
}

// ToProtoMessage wraps a plain acknowledgement.
func ToProtoMessage(msg string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"message": structpb.NewStringValue(msg),
	}}
}

// RunErrorStatus maps a pipeline failure onto a gRPC status. Ingestion failures
// are Unavailable; everything else is Internal. The aggregate error document
// travels as a status detail.
func RunErrorStatus(err error) error {
	if err == nil {
		return nil
	}
	var runErr *models.RunError
	if !errors.As(err, &runErr) {
		return status.Error(codes.Internal, err.Error())
	}

	code := codes.Internal
	if errors.Is(runErr, utils.ErrIngestionFailure) {
		code = codes.Unavailable
	}
	st := status.New(code, runErr.Error())
	detail, convErr := toStruct(runErr)
	if convErr != nil {
		return st.Err()
	}
	if withDetail, detailErr := st.WithDetails(detail); detailErr == nil {
		st = withDetail
	}
	return st.Err()
}

// RunErrorFromStatus recovers the aggregate error document from a status
// produced by RunErrorStatus.
func RunErrorFromStatus(err error) (*models.RunError, bool) {
	st, ok := status.FromError(err)
	if !ok || st == nil {
		return nil, false
	}
	for _, d := range st.Details() {
		detail, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		fields := detail.GetFields()
		kind := fields["error"].GetStringValue()
		if kind == "" {
			continue
		}
		return models.NewRunError(kind, errors.New(fields["message"].GetStringValue()), fields["timestamp"].GetStringValue()), true
	}
	return nil, false
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
