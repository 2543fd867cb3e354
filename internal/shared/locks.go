package shared

// LockNamespaceReceivables is the first key of the two-key postgres advisory
// lock used to serialize postings per customer.
const LockNamespaceReceivables int32 = 0x4152

// CustomerLockKey returns the advisory lock keys guarding postings for customerID.
func CustomerLockKey(customerID int64) (int32, int32) {
	return LockNamespaceReceivables, int32(customerID ^ (customerID >> 32))
}
