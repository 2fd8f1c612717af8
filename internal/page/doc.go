// Package page provides page-size arithmetic for address ranges.
//
// All helpers work on raw addresses (uintptr). Functions that take an
// explicit page size exist so the arithmetic can be exercised without
// depending on the host's page size.
package page
