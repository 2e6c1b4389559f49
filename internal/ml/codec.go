package ml

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/internal/version"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// payload is the binary body of an encoded model. Exactly one classifier field is set.
// Only slices and scalars are stored so the encoding is byte-for-byte repeatable.
type payload struct {
	Kind       types.ModelKind
	Features   []string
	Classes    []types.Label
	Scaler     StandardScaler
	Tree       *DecisionTree
	Forest     *RandomForest
	Logistic   *LogisticRegression
	SVM        *LinearSVM
	KNN        *KNN
	NaiveBayes *GaussianNB
}

type additionalInfo struct {
	Classes   []types.Label `json:"classes"`
	TrainRows int           `json:"train_rows"`
	TestRows  int           `json:"test_rows"`
}

// Encode converts a model into its persisted record. The payload is gob then base64.
func Encode(model *TrainedModel) (types.ModelRecord, error) {
	if model == nil {
		return types.ModelRecord{}, errors.New(errors.ErrCodeModelNotTrained, "cannot encode a nil model")
	}

	if err := model.validate(); err != nil {
		return types.ModelRecord{}, err
	}

	body := payload{
		Kind:     model.Kind,
		Features: model.Features,
		Classes:  model.Classes,
		Scaler:   model.scaler,
	}

	switch c := model.classifier.(type) {
	case *DecisionTree:
		body.Tree = c
	case *RandomForest:
		body.Forest = c
	case *LogisticRegression:
		body.Logistic = c
	case *LinearSVM:
		body.SVM = c
	case *KNN:
		body.KNN = c
	case *GaussianNB:
		body.NaiveBayes = c
	default:
		return types.ModelRecord{}, errors.Newf(errors.ErrCodeUnknownModelKind, "cannot encode classifier %T", c)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(body); err != nil {
		return types.ModelRecord{}, errors.Wrap(errors.ErrCodeModelDecodeFailed, "failed to encode model payload", err)
	}

	report, err := model.Report.JSON()
	if err != nil {
		return types.ModelRecord{}, errors.Wrap(errors.ErrCodeModelDecodeFailed, "failed to encode classification report", err)
	}

	info, err := json.Marshal(additionalInfo{Classes: model.Classes, TrainRows: model.TrainRows, TestRows: model.TestRows})
	if err != nil {
		return types.ModelRecord{}, errors.Wrap(errors.ErrCodeModelDecodeFailed, "failed to encode model info", err)
	}

	return types.ModelRecord{
		ID:             model.ID,
		Name:           model.Name,
		Kind:           model.Kind,
		Version:        model.Version,
		TrainingDate:   model.TrainingDate,
		Accuracy:       model.Accuracy,
		Report:         report,
		Features:       append([]string{}, model.Features...),
		Payload:        base64.StdEncoding.EncodeToString(buf.Bytes()),
		AdditionalInfo: string(info),
		FormatVersion:  version.ModelFormatVersion,
	}, nil
}

// Decode restores a model from its persisted record. Decoded models carry no held-out predictions.
func Decode(record types.ModelRecord) (*TrainedModel, error) {
	if err := version.CheckModelFormat(record.FormatVersion); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeIncompatibleModel, err, "model %s v%d cannot be read", record.Name, record.Version)
	}

	raw, err := base64.StdEncoding.DecodeString(record.Payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeModelDecodeFailed, "model payload is not valid base64", err)
	}

	var body payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&body); err != nil {
		return nil, errors.Wrap(errors.ErrCodeModelDecodeFailed, "failed to decode model payload", err)
	}

	var classifier Classifier

	switch {
	case body.Tree != nil:
		classifier = body.Tree
	case body.Forest != nil:
		classifier = body.Forest
	case body.Logistic != nil:
		classifier = body.Logistic
	case body.SVM != nil:
		classifier = body.SVM
	case body.KNN != nil:
		classifier = body.KNN
	case body.NaiveBayes != nil:
		classifier = body.NaiveBayes
	default:
		return nil, errors.New(errors.ErrCodeModelDecodeFailed, "model payload holds no classifier")
	}

	if classifier.Kind() != body.Kind {
		return nil, errors.Newf(errors.ErrCodeModelDecodeFailed, "payload kind %s does not match classifier %s", body.Kind, classifier.Kind())
	}

	report, err := ParseReport(record.Report)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeModelDecodeFailed, "failed to decode classification report", err)
	}

	var info additionalInfo
	if record.AdditionalInfo != "" {
		_ = json.Unmarshal([]byte(record.AdditionalInfo), &info)
	}

	model := &TrainedModel{
		ID:           record.ID,
		Name:         record.Name,
		Kind:         body.Kind,
		Version:      record.Version,
		TrainingDate: record.TrainingDate,
		Features:     body.Features,
		Classes:      body.Classes,
		Accuracy:     record.Accuracy,
		Report:       report,
		TrainRows:    info.TrainRows,
		TestRows:     info.TestRows,
		scaler:       body.Scaler,
		classifier:   classifier,
	}

	if err := model.validate(); err != nil {
		return nil, err
	}

	return model, nil
}
