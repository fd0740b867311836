package textnorm

import "errors"

// ErrLemmatizer is returned when the lemmatization dictionary cannot be loaded.
var ErrLemmatizer = errors.New("load lemmatizer")
