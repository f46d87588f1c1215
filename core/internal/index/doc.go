// Package index decodes the building blocks of a pak index block: the mount
// point header, the common entry record and length-prefixed names.
//
// The dialect packages own the overall layout and call these in order.
package index
