// Package app wires the page-rendering engine: route resolution, component
// composition, dynamic-data resolution and payload assembly, plus the
// administrative services that maintain the catalog behind them.
//
// The pipeline is stateless per request. The only cross-request state is the
// read-through catalog cache, which is invalidated on catalog writes.
package app
