// Package diabrisk analyzes BRFSS-style health survey data for diabetes
// risk. The cmd/diabrisk binary drives an eight-stage workflow: load and
// recode the survey table, balance the outcome categories, summarize and
// correlate the predictors, embed a subsample in two dimensions, score
// features against the outcome, fit a logistic baseline with odds ratios,
// filter features with shadow-permutation importance, and tune a boosted
// tree classifier with a seeded random hyperparameter search.
//
// Every stage is exposed as its own package so the pieces can be used
// independently: dataset, eda, projection, featsel, linearmodel, boosting,
// metrics, search, plots and pipeline. All randomness flows from explicit
// seeds, so a run is reproducible end to end.
package diabrisk
