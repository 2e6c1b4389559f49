package ml

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

// TrainerConfig selects the classifier and how rows are split for evaluation.
type TrainerConfig struct {
	Kind types.ModelKind `yaml:"model_kind" json:"model_kind" jsonschema:"title=Model kind,enum=random_forest,enum=logistic_regression,enum=svm,enum=knn,enum=naive_bayes,enum=decision_tree,default=random_forest"`
	// TestFraction of rows held out for evaluation.
	TestFraction float64 `yaml:"test_fraction" json:"test_fraction" jsonschema:"title=Test fraction,default=0.2" validate:"gt=0,lt=1"`
	Seed         int64   `yaml:"seed" json:"seed" jsonschema:"title=Random seed,default=42"`
	// TimeOrderedSplit holds out the latest rows instead of a stratified random sample.
	TimeOrderedSplit bool `yaml:"time_ordered_split" json:"time_ordered_split" jsonschema:"title=Time ordered split,default=false"`
	// Name and Features are set by the caller from the indicator selection.
	Name     string   `yaml:"-" json:"-"`
	Features []string `yaml:"-" json:"-"`
}

// DefaultTrainerConfig returns a random forest with a 20% stratified hold-out and seed 42.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Kind:         types.ModelKindRandomForest,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Trainer fits models and holds at most one live model.
type Trainer struct {
	config TrainerConfig
	logger *logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	live *TrainedModel
}

func NewTrainer(config TrainerConfig, log *logger.Logger) (*Trainer, error) {
	kind, err := types.ParseModelKind(string(config.Kind))
	if err != nil {
		return nil, err
	}

	config.Kind = kind

	if config.TestFraction <= 0 || config.TestFraction >= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "test fraction must be in (0, 1), got %f", config.TestFraction)
	}

	if len(config.Features) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "trainer needs at least one feature column")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Trainer{
		config: config,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Model returns the live model, if any.
func (t *Trainer) Model() optional.Option[*TrainedModel] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.live == nil {
		return optional.None[*TrainedModel]()
	}

	return optional.Some(t.live)
}

// Load installs a previously persisted model as the live model.
func (t *Trainer) Load(model *TrainedModel) error {
	if model == nil {
		return errors.New(errors.ErrCodeModelNotTrained, "cannot load a nil model")
	}

	if err := model.validate(); err != nil {
		return err
	}

	t.mu.Lock()
	t.live = model
	t.mu.Unlock()

	return nil
}

// Train returns the live model unchanged, or fits version 1 when there is none.
func (t *Trainer) Train(rows []types.FeatureRow) (*TrainedModel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.live != nil {
		return t.live, nil
	}

	return t.fitLocked(rows, 1)
}

// Retrain always fits a new model one version above the live one and makes it live.
func (t *Trainer) Retrain(rows []types.FeatureRow) (*TrainedModel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := 1
	if t.live != nil {
		next = t.live.Version + 1
	}

	return t.fitLocked(rows, next)
}

func (t *Trainer) fitLocked(rows []types.FeatureRow, modelVersion int) (*TrainedModel, error) {
	model, err := t.fit(rows, modelVersion)
	if err != nil {
		return nil, err
	}

	t.live = model

	return model, nil
}

func (t *Trainer) fit(rows []types.FeatureRow, modelVersion int) (*TrainedModel, error) {
	features := t.config.Features

	usable := make([]types.FeatureRow, 0, len(rows))
	for _, row := range rows {
		if row.Label == types.LabelNone || !row.Complete(features) {
			continue
		}

		usable = append(usable, row)
	}

	if len(usable) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyTrainingSet, "no labeled rows with complete features out of %d", len(rows))
	}

	classes, y := encodeLabels(usable)
	if len(classes) < 2 && !FitsSingleClass(t.config.Kind) {
		return nil, errors.Newf(errors.ErrCodeSingleClass, "%s needs two classes, training rows only carry label %q",
			t.config.Kind, classes[0])
	}

	var train, test []int

	if t.config.TimeOrderedSplit {
		timestamps := make([]time.Time, len(usable))
		for i, row := range usable {
			timestamps[i] = row.Timestamp
		}

		train, test = TimeOrderedSplit(timestamps, t.config.TestFraction)
	} else {
		train, test = StratifiedSplit(y, len(classes), t.config.TestFraction, t.config.Seed)
	}

	if len(train) < 2 {
		return nil, errors.NewInsufficientDataErrorf(2, len(train), "", "need at least 2 training rows, got %d", len(train))
	}

	if len(test) == 0 {
		return nil, errors.NewInsufficientDataErrorf(1, 0, "", "%d rows leave no held-out rows", len(usable))
	}

	trainX, trainY := gather(usable, y, train, features)
	testX, testY := gather(usable, y, test, features)

	var scaler StandardScaler
	scaler.Fit(trainX)

	classifier, err := NewClassifier(t.config.Kind, t.config.Seed)
	if err != nil {
		return nil, err
	}

	if err := classifier.Fit(scaler.Transform(trainX), trainY, len(classes)); err != nil {
		return nil, err
	}

	trainedAt := t.now()
	model := &TrainedModel{
		ID:           uuid.New().String(),
		Name:         t.config.Name,
		Kind:         t.config.Kind,
		Version:      modelVersion,
		TrainingDate: trainedAt,
		Features:     append([]string{}, features...),
		Classes:      classes,
		TrainRows:    len(train),
		TestRows:     len(test),
		scaler:       scaler,
		classifier:   classifier,
	}

	predicted := make([]int, len(test))
	model.Predictions = make([]types.Prediction, len(test))

	for k, i := range test {
		predicted[k] = classifier.Predict(scaler.TransformRow(testX[k]))
		model.Predictions[k] = types.Prediction{
			Symbol:         usable[i].Symbol,
			Timestamp:      usable[i].Timestamp,
			Prediction:     classes[predicted[k]],
			PredictionDate: trainedAt,
			ModelID:        model.ID,
			ModelVersion:   modelVersion,
		}
	}

	model.Report = Evaluate(testY, predicted, classes)
	model.Accuracy = model.Report.Accuracy

	t.logger.Info("Trained model",
		zap.String("name", model.Name),
		zap.String("kind", string(model.Kind)),
		zap.Int("version", model.Version),
		zap.Int("train_rows", len(train)),
		zap.Int("test_rows", len(test)),
		zap.Float64("accuracy", model.Accuracy),
	)

	return model, nil
}

// encodeLabels returns the labels present in rows in canonical order and each row's class index.
func encodeLabels(rows []types.FeatureRow) ([]types.Label, []int) {
	present := make(map[types.Label]bool)
	for _, row := range rows {
		present[row.Label] = true
	}

	var classes []types.Label

	index := make(map[types.Label]int)

	for _, label := range types.Labels {
		if present[label] {
			index[label] = len(classes)
			classes = append(classes, label)
		}
	}

	y := make([]int, len(rows))
	for i, row := range rows {
		y[i] = index[row.Label]
	}

	return classes, y
}

func gather(rows []types.FeatureRow, y []int, idx []int, features []string) ([][]float64, []int) {
	X := make([][]float64, len(idx))
	labels := make([]int, len(idx))

	for k, i := range idx {
		X[k] = rows[i].Vector(features)
		labels[k] = y[i]
	}

	return X, labels
}
