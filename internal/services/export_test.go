package services

var StoreError = storeError
