// Package cache provides a generation-based frame cache.
//
// FrameCache stores values under explicit keys and evicts entries that have
// not been touched for more than a fixed number of frames. Callers advance
// the generation once per frame with Sweep.
//
//	c := cache.NewFrame[uint64, []byte](2, nil)
//	row := c.GetOrCreate(fingerprint, build)
//	...
//	c.Sweep() // end of frame
//
// FrameCache is safe for concurrent use and must not be copied after
// creation (it contains a mutex).
package cache
