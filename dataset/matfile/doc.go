// Package matfile reads and writes numeric matrices in the MATLAB Level 5
// MAT-file format.
//
// Only numeric arrays are decoded; cells, structs, character arrays and
// sparse matrices are skipped. Compressed elements (MATLAB 7 default) are
// supported on both read and write. Matrix data is kept in MATLAB's
// column-major order.
package matfile
