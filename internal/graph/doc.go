// Package graph builds and serves the capability graph: which operation
// outputs can feed which operation inputs.
//
// Builds run in two phases. The embedding index narrows the search to
// candidate pairs by cosine similarity, then the oracle validates each
// candidate that is not already stored, classifying it as direct,
// translatable, or incompatible. Only traversable edges persist; the edge
// set is reloaded from storage after every build so concurrent builders
// converge on the same view.
package graph
